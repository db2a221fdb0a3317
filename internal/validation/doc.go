// Package validation provides the upfront checks applied to a batch before
// any request is sent.
//
// A batch is rejected as a whole on the first failing rule. Rules are checked
// in a fixed order: bucket, file count, then per file the accept rule and the
// size limit. Every rejection is an *errors.ValidationError.
package validation
