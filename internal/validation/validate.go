package validation

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

// sniffLimit is the number of leading bytes read to detect a content type.
const sniffLimit = 3072

// acceptSeparators splits extension lists such as "pdf, docx、png".
var acceptSeparators = regexp.MustCompile(`[、,，\s]`)

// Rules are the batch-level constraints.
type Rules struct {
	Bucket string

	// Limit is the maximum number of files; 0 disables the check
	Limit int

	// MaxSize is the maximum file size in MiB; 0 disables the check
	MaxSize float64

	// Accept is "*", "image/*", "video/*" or a list of extensions
	Accept string

	// AcceptFunc takes precedence over Accept when set
	AcceptFunc s3types.AcceptFunc
}

// Validate checks files against rules and returns the first rejection.
func Validate(files []s3types.File, rules Rules) error {
	if err := ValidateBucket(rules.Bucket); err != nil {
		return err
	}
	if err := ValidateLimit(len(files), rules.Limit); err != nil {
		return err
	}
	for _, f := range files {
		if err := ValidateFile(f); err != nil {
			return err
		}
		if err := ValidateAccept(f, rules.Accept, rules.AcceptFunc); err != nil {
			return err
		}
		if err := ValidateSize(f, rules.MaxSize); err != nil {
			return err
		}
	}
	return nil
}

// ValidateBucket rejects an empty bucket name.
func ValidateBucket(bucket string) error {
	if strings.TrimSpace(bucket) == "" {
		return &errors.ValidationError{Type: "bucket", Err: errors.ErrMissingBucket}
	}
	return nil
}

// ValidateLimit rejects more than limit files. A non-positive limit allows any count.
func ValidateLimit(count, limit int) error {
	if limit > 0 && count > limit {
		return &errors.ValidationError{
			Type:    "limit",
			Allow:   limit,
			Current: count,
			Err:     errors.ErrTooManyFiles,
		}
	}
	return nil
}

// ValidateFile checks that a file can be read.
func ValidateFile(file s3types.File) error {
	if file.Size < 0 {
		return errors.NewError("validateFile", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("file %q has a negative size", file.Name))
	}
	if file.Size > 0 && file.Body == nil {
		return errors.NewError("validateFile", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("file %q has no body", file.Name))
	}
	return nil
}

// ValidateAccept rejects a file that does not match the accept rule.
// A function rule that returns an error rejects the file.
func ValidateAccept(file s3types.File, accept string, fn s3types.AcceptFunc) error {
	ok := true
	switch {
	case fn != nil:
		allowed, err := fn(file.Identity())
		ok = err == nil && allowed
	case accept != "":
		ok = Accepts(accept, file)
	}
	if !ok {
		return &errors.ValidationError{
			Type:    "accept",
			Current: file.Name,
			Err:     errors.ErrFormatNotAllowed,
		}
	}
	return nil
}

// Accepts reports whether file matches an accept rule.
func Accepts(accept string, file s3types.File) bool {
	rule := strings.TrimSpace(accept)
	switch rule {
	case "", "*":
		return true
	case "image/*", "video/*":
		return strings.Contains(ContentType(file), strings.TrimSuffix(rule, "*"))
	}

	name := strings.ToLower(file.Name)
	suffix := name[strings.LastIndex(name, ".")+1:]
	if suffix == "" {
		return false
	}
	for _, ext := range acceptSeparators.Split(strings.ToLower(rule), -1) {
		if strings.TrimPrefix(ext, ".") == suffix {
			return true
		}
	}
	return false
}

// ContentType returns the declared type of file, or the type detected from
// its leading bytes when none is declared.
func ContentType(file s3types.File) string {
	if file.Type != "" || file.Body == nil || file.Size == 0 {
		return file.Type
	}
	mtype, err := mimetype.DetectReader(io.NewSectionReader(file.Body, 0, min(file.Size, sniffLimit)))
	if err != nil {
		return ""
	}
	return mtype.String()
}

// ValidateSize rejects a file larger than maxSize MiB. A non-positive
// maxSize allows any size.
func ValidateSize(file s3types.File, maxSize float64) error {
	if maxSize <= 0 {
		return nil
	}
	size := SizeMiB(file.Size)
	if size > maxSize {
		return &errors.ValidationError{
			Type:    "size",
			Allow:   maxSize,
			Current: size,
			Err:     errors.ErrFileTooLarge,
		}
	}
	return nil
}

// SizeMiB returns size in MiB rounded to two decimals.
func SizeMiB(size int64) float64 {
	return math.Round(float64(size)/1024/1024*100) / 100
}

// AcceptAttribute turns an accept rule into the value of an HTML file input
// accept attribute. Lists of more than three extensions fall back to "*".
func AcceptAttribute(accept string) string {
	if strings.Contains(accept, "image/") || strings.Contains(accept, "video/") {
		return strings.TrimSpace(accept)
	}

	var exts []string
	for _, ext := range acceptSeparators.Split(strings.ToLower(accept), -1) {
		if ext = strings.TrimPrefix(ext, "."); ext != "" {
			exts = append(exts, "."+ext)
		}
	}
	if len(exts) > 0 && len(exts) <= 3 {
		return strings.Join(exts, ",")
	}
	return "*"
}

// ValidateChunking checks the chunk size and the part concurrency.
func ValidateChunking(chunkSize int64, chunkCount int) error {
	if chunkSize <= 0 {
		return errors.NewError("validateChunking", errors.ErrInvalidInput).
			WithMessage("chunk size must be positive")
	}
	if chunkCount <= 0 {
		return errors.NewError("validateChunking", errors.ErrInvalidInput).
			WithMessage("chunk count must be positive")
	}
	return nil
}
