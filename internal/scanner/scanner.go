// Package scanner discovers the files of a local directory tree for upload.
//
// Patterns are matched against slash-separated paths relative to the scan
// root and follow doublestar syntax ("*.pdf", "docs/**", "**/*.jpg").
// Exclude patterns win over include patterns; with no include pattern every
// file is included.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
)

// Rules selects which files of a tree are scanned.
type Rules struct {
	Include []string
	Exclude []string

	// Hidden includes files and directories whose name starts with "."
	Hidden bool
}

// Validate reports the first malformed pattern.
func (r Rules) Validate() error {
	for _, list := range [][]string{r.Include, r.Exclude} {
		for _, p := range list {
			if !doublestar.ValidatePattern(p) {
				return errors.NewError("scan", fmt.Errorf("%w: invalid pattern %q", errors.ErrInvalidInput, p))
			}
		}
	}
	return nil
}

// Match reports whether the relative path rel is selected.
func (r Rules) Match(rel string) bool {
	rel = filepath.ToSlash(rel)

	for _, p := range r.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return false
		}
	}
	if len(r.Include) == 0 {
		return true
	}
	for _, p := range r.Include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Scan walks root on filesystem and returns the paths of the regular files
// selected by rules, sorted lexically.
func Scan(ctx context.Context, filesystem billy.Filesystem, root string, rules Rules) ([]string, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	info, err := filesystem.Stat(root)
	if err != nil {
		return nil, errors.NewError("scan", err).WithKey(root)
	}
	if !info.IsDir() {
		return nil, errors.NewError("scan", fmt.Errorf("%w: %s is not a directory", errors.ErrInvalidInput, root))
	}

	var paths []string
	err = util.Walk(filesystem, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}

		if !rules.Hidden && info.Name()[0] == '.' {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %s: %w", path, err)
		}
		if rules.Match(rel) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewError("scan", fmt.Errorf("failed to walk directory %s: %w", root, err))
	}

	sort.Strings(paths)
	return paths, nil
}
