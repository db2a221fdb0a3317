package validation

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

// pngHeader is the signature of a PNG image.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestValidate(t *testing.T) {
	small := testutil.NewFile("a.pdf", "application/pdf", []byte("12345"))
	big := testutil.NewFile("b.pdf", "application/pdf", make([]byte, 3*1024*1024))

	tests := []struct {
		name     string
		files    []s3types.File
		rules    Rules
		wantType string
		wantErr  error
		allow    any
		current  any
	}{
		{
			name:  "valid batch",
			files: []s3types.File{small, big},
			rules: Rules{Bucket: "test-bucket", Limit: 2, MaxSize: 5, Accept: "pdf"},
		},
		{
			name:     "missing bucket",
			files:    []s3types.File{small},
			rules:    Rules{Bucket: "  "},
			wantType: "bucket",
			wantErr:  errors.ErrMissingBucket,
		},
		{
			name:     "too many files",
			files:    []s3types.File{small, small, small},
			rules:    Rules{Bucket: "b", Limit: 2},
			wantType: "limit",
			wantErr:  errors.ErrTooManyFiles,
			allow:    2,
			current:  3,
		},
		{
			name:     "format not allowed",
			files:    []s3types.File{small},
			rules:    Rules{Bucket: "b", Accept: "png, jpg"},
			wantType: "accept",
			wantErr:  errors.ErrFormatNotAllowed,
			current:  "a.pdf",
		},
		{
			name:     "file too large",
			files:    []s3types.File{small, big},
			rules:    Rules{Bucket: "b", MaxSize: 2.5},
			wantType: "size",
			wantErr:  errors.ErrFileTooLarge,
			allow:    2.5,
			current:  3.0,
		},
		{
			name:     "bucket checked before limit",
			files:    []s3types.File{small, small},
			rules:    Rules{Limit: 1},
			wantType: "bucket",
			wantErr:  errors.ErrMissingBucket,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.files, tt.rules)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, errors.IsValidation(err))

			var vErr *errors.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantType, vErr.Type)
			assert.Equal(t, tt.allow, vErr.Allow)
			assert.Equal(t, tt.current, vErr.Current)
		})
	}
}

func TestValidateFile(t *testing.T) {
	assert.NoError(t, ValidateFile(s3types.File{Name: "empty"}))

	err := ValidateFile(s3types.File{Name: "x", Size: 10})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "has no body")

	err = ValidateFile(s3types.File{Name: "x", Size: -1})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestAccepts(t *testing.T) {
	tests := []struct {
		name   string
		accept string
		file   s3types.File
		want   bool
	}{
		{"empty rule", "", testutil.NewFile("a.exe", "", []byte("x")), true},
		{"wildcard", " * ", testutil.NewFile("a.exe", "", []byte("x")), true},
		{"image by type", "image/*", testutil.NewFile("a", "image/png", []byte("x")), true},
		{"image rejects video", "image/*", testutil.NewFile("a.mp4", "video/mp4", []byte("x")), false},
		{"video by type", "video/*", testutil.NewFile("a.mp4", "video/mp4", []byte("x")), true},
		{"image detected from content", "image/*", testutil.NewFile("noext", "", pngHeader), true},
		{"extension list", "pdf,docx", testutil.NewFile("Report.PDF", "", []byte("x")), true},
		{"fullwidth separators", "png，jpg、gif", testutil.NewFile("a.gif", "", []byte("x")), true},
		{"whitespace separators", "png jpg", testutil.NewFile("a.jpg", "", []byte("x")), true},
		{"dotted extensions", ".png,.jpg", testutil.NewFile("a.png", "", []byte("x")), true},
		{"extension not listed", "png,jpg", testutil.NewFile("a.pdf", "", []byte("x")), false},
		{"no extension", "png", testutil.NewFile("a", "", []byte("x")), false},
		{"trailing dot", "png", testutil.NewFile("a.", "", []byte("x")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Accepts(tt.accept, tt.file))
		})
	}
}

func TestValidateAccept_Func(t *testing.T) {
	file := testutil.NewFile("a.txt", "text/plain", []byte("x"))

	tests := []struct {
		name    string
		fn      s3types.AcceptFunc
		wantErr bool
	}{
		{
			name: "allowed",
			fn:   func(s3types.FileIdentity) (bool, error) { return true, nil },
		},
		{
			name:    "refused",
			fn:      func(s3types.FileIdentity) (bool, error) { return false, nil },
			wantErr: true,
		},
		{
			name:    "error rejects",
			fn:      func(s3types.FileIdentity) (bool, error) { return true, stderrors.New("lookup failed") },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The function takes precedence over the string rule
			err := ValidateAccept(file, "png", tt.fn)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrFormatNotAllowed)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSizeMiB(t *testing.T) {
	assert.Equal(t, 0.0, SizeMiB(0))
	assert.Equal(t, 1.0, SizeMiB(1024*1024))
	assert.Equal(t, 1.5, SizeMiB(1024*1024*3/2))
	assert.Equal(t, 0.01, SizeMiB(10*1024))
}

func TestAcceptAttribute(t *testing.T) {
	tests := []struct {
		accept string
		want   string
	}{
		{"", "*"},
		{" image/* ", "image/*"},
		{"video/*", "video/*"},
		{"PDF, docx", ".pdf,.docx"},
		{"png，jpg、gif", ".png,.jpg,.gif"},
		{"a,b,c,d", "*"},
		{strings.Repeat(" ", 3), "*"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AcceptAttribute(tt.accept), "%q", tt.accept)
	}
}

func TestValidateChunking(t *testing.T) {
	assert.NoError(t, ValidateChunking(5*1024*1024, 4))
	assert.ErrorIs(t, ValidateChunking(0, 4), errors.ErrInvalidInput)
	assert.ErrorIs(t, ValidateChunking(1, 0), errors.ErrInvalidInput)
}
