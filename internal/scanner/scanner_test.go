package scanner

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
)

func newTree(t *testing.T) billy.Filesystem {
	t.Helper()

	fs := memfs.New()
	for _, name := range []string{
		"/data/a.pdf",
		"/data/b.txt",
		"/data/docs/c.pdf",
		"/data/docs/deep/d.jpg",
		"/data/.cache/e.pdf",
		"/data/.hidden.pdf",
		"/other/f.pdf",
	} {
		require.NoError(t, util.WriteFile(fs, name, []byte(name), 0o644))
	}
	return fs
}

func TestScan(t *testing.T) {
	tests := []struct {
		name  string
		rules Rules
		want  []string
	}{
		{
			name: "everything visible",
			want: []string{"/data/a.pdf", "/data/b.txt", "/data/docs/c.pdf", "/data/docs/deep/d.jpg"},
		},
		{
			name:  "include extension at any depth",
			rules: Rules{Include: []string{"**/*.pdf"}},
			want:  []string{"/data/a.pdf", "/data/docs/c.pdf"},
		},
		{
			name:  "include top level only",
			rules: Rules{Include: []string{"*.pdf"}},
			want:  []string{"/data/a.pdf"},
		},
		{
			name:  "exclude directory",
			rules: Rules{Exclude: []string{"docs/**"}},
			want:  []string{"/data/a.pdf", "/data/b.txt"},
		},
		{
			name:  "exclude wins over include",
			rules: Rules{Include: []string{"**/*.pdf"}, Exclude: []string{"docs/*"}},
			want:  []string{"/data/a.pdf"},
		},
		{
			name:  "hidden",
			rules: Rules{Include: []string{"**/*.pdf"}, Hidden: true},
			want:  []string{"/data/.cache/e.pdf", "/data/.hidden.pdf", "/data/a.pdf", "/data/docs/c.pdf"},
		},
	}

	fs := newTree(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Scan(context.Background(), fs, "/data", tt.rules)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScan_Errors(t *testing.T) {
	fs := newTree(t)
	ctx := context.Background()

	_, err := Scan(ctx, fs, "/missing", Rules{})
	assert.Error(t, err)

	_, err = Scan(ctx, fs, "/data/a.pdf", Rules{})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = Scan(ctx, fs, "/data", Rules{Include: []string{"[a-"}})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Scan(canceled, fs, "/data", Rules{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRules_Match(t *testing.T) {
	r := Rules{Include: []string{"**/*.jpg", "*.pdf"}, Exclude: []string{"tmp/**"}}

	assert.True(t, r.Match("a.pdf"))
	assert.True(t, r.Match("x/y/z.jpg"))
	assert.False(t, r.Match("x/a.pdf"))
	assert.False(t, r.Match("tmp/z.jpg"))
	assert.False(t, r.Match("b.txt"))
}
