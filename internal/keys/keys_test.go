package keys

import (
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

var keyPattern = regexp.MustCompile(`^[0-9a-f-]{36}/[0-9a-f]{32}\..+$`)

func testIdentity() s3types.FileIdentity {
	return s3types.FileIdentity{
		Name:         "report final.pdf",
		Size:         1024,
		Type:         "application/pdf",
		LastModified: 1700000000000,
	}
}

func TestContentStrategy_Key_Deterministic(t *testing.T) {
	s := NewContentStrategy()
	id := testIdentity()

	first := s.Key(id)
	second := s.Key(id)

	assert.Equal(t, first, second)
	assert.Regexp(t, keyPattern, first)
	assert.True(t, len(first) > 0)
}

func TestContentStrategy_Key_DiffersOnIdentity(t *testing.T) {
	s := NewContentStrategy()
	base := testIdentity()

	tests := []struct {
		name   string
		mutate func(*s3types.FileIdentity)
	}{
		{name: "last modified", mutate: func(id *s3types.FileIdentity) { id.LastModified++ }},
		{name: "size", mutate: func(id *s3types.FileIdentity) { id.Size++ }},
		{name: "type", mutate: func(id *s3types.FileIdentity) { id.Type = "text/plain" }},
		{name: "name", mutate: func(id *s3types.FileIdentity) { id.Name = "other.pdf" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := base
			tt.mutate(&changed)
			assert.NotEqual(t, s.Key(base), s.Key(changed))
		})
	}
}

func TestContentStrategy_Key_Layout(t *testing.T) {
	s := NewContentStrategy()
	id := testIdentity()

	key := s.Key(id)

	want := s.ContentHash(id) + "/" + NameHash(id.Name) + ".pdf"
	assert.Equal(t, want, key)
}

func TestContentStrategy_ContentHash_MatchesUUIDv5(t *testing.T) {
	s := NewContentStrategy()
	id := testIdentity()

	input := `["report%20final.pdf","1024","application/pdf","1700000000000"]`
	want := uuid.NewSHA1(uuid.NameSpaceURL, []byte(input)).String()

	assert.Equal(t, want, s.ContentHash(id))
}

func TestContentStrategy_ContentHash_FallsBackToRandom(t *testing.T) {
	s := &ContentStrategy{marshal: func(any) ([]byte, error) {
		return nil, errors.New("boom")
	}}
	id := testIdentity()

	first := s.ContentHash(id)
	second := s.ContentHash(id)

	_, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "fallback hash should be random")
}

func TestNameHash(t *testing.T) {
	h := NameHash("photo.png")
	assert.Len(t, h, 32)
	assert.NotContains(t, h, "-")
	assert.Equal(t, h, NameHash("photo.png"))
	assert.NotEqual(t, h, NameHash("photo.jpg"))
}

func TestSuffix(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "photo.png", want: "png"},
		{name: "archive.tar.gz", want: "gz"},
		{name: "README", want: "README"},
		{name: ".env", want: "env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Suffix(tt.name))
		})
	}
}

func TestMetadata(t *testing.T) {
	meta := Metadata(testIdentity())

	assert.Equal(t, map[string]string{
		"name":         "report%20final.pdf",
		"size":         "1024",
		"type":         "application/pdf",
		"lastmodified": "1700000000000",
	}, meta)
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, "attachment", ContentDisposition(""))
	assert.Equal(t, `attachment; filename="a%20b.txt"`, ContentDisposition("a b.txt"))
}

func TestPrefixStrategy(t *testing.T) {
	inner := NewContentStrategy()
	id := testIdentity()

	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{name: "plain prefix", prefix: "uploads", want: "uploads/" + inner.Key(id)},
		{name: "slashes trimmed", prefix: "/uploads/", want: "uploads/" + inner.Key(id)},
		{name: "empty prefix", prefix: "", want: inner.Key(id)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewPrefixStrategy(tt.prefix, nil)
			assert.Equal(t, tt.want, s.Key(id))
		})
	}
}
