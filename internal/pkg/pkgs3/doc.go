// Package pkgs3 is a thin wrapper around the AWS SDK v2 S3 client for
// S3-compatible object stores (AWS, MinIO, SeaweedFS).
package pkgs3
