// Package keys derives deterministic storage keys from file identities.
//
// A key has the form "<contentHash>/<nameHash>.<suffix>". Identical identities
// always map to the same key, which is what makes the existence probe usable
// as a dedup check.
package keys

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/uri"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

// ContentStrategy is the default key strategy.
type ContentStrategy struct {
	// marshal builds the hash input; replaced in tests to exercise the fallback
	marshal func(v any) ([]byte, error)
}

// NewContentStrategy creates the default key strategy.
func NewContentStrategy() *ContentStrategy {
	return &ContentStrategy{marshal: marshalTuple}
}

// Key returns the storage key of the file.
func (s *ContentStrategy) Key(file s3types.FileIdentity) string {
	return s.ContentHash(file) + "/" + NameHash(file.Name) + "." + Suffix(file.Name)
}

// ContentHash returns a UUIDv5 over the identity tuple, or a random UUID when
// the hash input cannot be built. A random hash disables dedup for that file.
func (s *ContentStrategy) ContentHash(file s3types.FileIdentity) string {
	marshal := s.marshal
	if marshal == nil {
		marshal = marshalTuple
	}
	meta := Metadata(file)
	data, err := marshal([]string{meta["name"], meta["size"], meta["type"], meta["lastmodified"]})
	if err != nil {
		return uuid.NewString()
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, data).String()
}

// marshalTuple encodes v as compact JSON without HTML escaping, so the hash
// input matches a plain JSON.stringify of the same tuple.
func marshalTuple(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// NameHash returns the dash-less UUIDv5 of a file name.
func NameHash(name string) string {
	return strings.ReplaceAll(uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String(), "-", "")
}

// Suffix returns the text after the last dot of name, or the whole name when
// it has no dot.
func Suffix(name string) string {
	return name[strings.LastIndex(name, ".")+1:]
}

// Metadata returns the object metadata attached to every upload.
// All values are strings; the name is URI-component encoded.
func Metadata(file s3types.FileIdentity) map[string]string {
	return map[string]string{
		"name":         uri.EncodeComponent(file.Name),
		"size":         strconv.FormatInt(file.Size, 10),
		"type":         file.Type,
		"lastmodified": strconv.FormatInt(file.LastModified, 10),
	}
}

// ContentDisposition returns the attachment disposition for a file name.
func ContentDisposition(name string) string {
	if name == "" {
		return "attachment"
	}
	return `attachment; filename="` + uri.EncodeComponent(name) + `"`
}

// PrefixStrategy prepends a fixed prefix to the keys of another strategy.
type PrefixStrategy struct {
	Prefix string
	Inner  s3types.KeyStrategy
}

// NewPrefixStrategy creates a strategy that places keys under prefix.
// A nil inner strategy defaults to ContentStrategy.
func NewPrefixStrategy(prefix string, inner s3types.KeyStrategy) *PrefixStrategy {
	if inner == nil {
		inner = NewContentStrategy()
	}
	return &PrefixStrategy{Prefix: prefix, Inner: inner}
}

// Key returns the inner key under the prefix.
func (s *PrefixStrategy) Key(file s3types.FileIdentity) string {
	prefix := strings.Trim(s.Prefix, "/")
	if prefix == "" {
		return s.Inner.Key(file)
	}
	return prefix + "/" + s.Inner.Key(file)
}

var (
	_ s3types.KeyStrategy = (*ContentStrategy)(nil)
	_ s3types.KeyStrategy = (*PrefixStrategy)(nil)
)
