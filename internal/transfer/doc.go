// Package transfer contains the multipart transfer machinery:
// chunk planning and bounded-concurrency part uploads with retry.
package transfer
