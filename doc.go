// Package s3upload uploads files to S3-compatible object stores.
// It wraps AWS SDK v2 and adds content-addressed keys, existence dedup,
// chunked multipart uploads with bounded concurrency and retry rounds, and
// progress reporting through observers.
//
// Key features:
//   - Deterministic keys derived from file identity, so re-uploads are skipped
//   - Single-request upload for small files, multipart above the chunk size
//   - Failed parts retried in rounds, failed files retried across batch rounds
//   - Direct, presigned-URL or MinIO part uploads behind one client
//   - Upfront validation of file count, format and size
//   - Directory uploads with include and exclude globs
//
// Example usage:
//
//	client, err := s3upload.New(
//	    s3upload.WithRegion("auto"),
//	    s3upload.WithEndpoint("https://<account>.r2.cloudflarestorage.com"),
//	)
//	if err != nil {
//	    return err
//	}
//
//	file, closer, err := client.OpenFile("/local/report.pdf")
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//
//	result, err := client.Upload(ctx, []s3types.File{file},
//	    s3upload.WithBucket("my-bucket"),
//	    s3upload.OnProgress(func(f s3types.FileIdentity, percent float64, res *s3types.Result) {
//	        fmt.Printf("%s: %.2f%%\n", f.Name, percent)
//	    }),
//	)
//	if err != nil {
//	    return err
//	}
//	for _, r := range result.Completed {
//	    fmt.Println(r.Path)
//	}
//
// Whole directories are uploaded with UploadDir:
//
//	result, err := client.UploadDir(ctx, "/local/site",
//	    s3upload.WithBucket("my-bucket"),
//	    s3upload.WithExclude("**/*.tmp"),
//	)
package s3upload
