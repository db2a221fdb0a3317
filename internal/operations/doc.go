// Package operations contains the per-file upload operations used by the
// batch orchestrator.
//
// Each operation is implemented in its own subpackage:
//   - probe: metadata-only existence check used for dedup
//   - upload: simple and multipart upload of one file
package operations
