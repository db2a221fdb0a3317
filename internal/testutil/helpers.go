// Package testutil provides test helper functions.
package testutil

import (
	"bytes"
	"math/rand"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

// GenerateRandomData generates random bytes of the specified size.
// This is useful for creating test data for uploads.
func GenerateRandomData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(rand.Intn(256))
	}
	return data
}

// NewFile builds an in-memory file with the given name and content.
func NewFile(name, contentType string, data []byte) s3types.File {
	return s3types.File{
		Name:         name,
		Size:         int64(len(data)),
		Type:         contentType,
		LastModified: 1700000000000,
		Body:         bytes.NewReader(data),
	}
}

// NewRandomFile builds an in-memory file of the given size filled with random bytes.
func NewRandomFile(name string, size int) s3types.File {
	return NewFile(name, "application/octet-stream", GenerateRandomData(size))
}
