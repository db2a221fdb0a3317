// Package chunk partitions a file into fixed-size byte ranges.
package chunk

import (
	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

// DefaultSize is the default chunk size and the simple-upload threshold (5MB).
const DefaultSize = 5 * 1024 * 1024

// Count returns ceil(size / chunkSize), or 0 for an empty file or a
// non-positive chunk size.
func Count(size, chunkSize int64) int {
	if size <= 0 || chunkSize <= 0 {
		return 0
	}
	return int((size + chunkSize - 1) / chunkSize) // Ceiling division
}

// Plan returns the chunks covering [0, size) in part number order.
// Every chunk except the last is exactly chunkSize bytes.
func Plan(size, chunkSize int64) []s3types.FileChunk {
	n := Count(size, chunkSize)
	if n == 0 {
		return nil
	}

	chunks := make([]s3types.FileChunk, 0, n)
	var end int64
	for i := 0; i < n; i++ {
		start := end
		end = min(start+chunkSize, size)
		chunks = append(chunks, s3types.FileChunk{
			Start:      start,
			End:        end,
			PartNumber: int32(i + 1),
		})
	}
	return chunks
}
