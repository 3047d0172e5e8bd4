// Package storage provides the blob store abstraction and the blob key layout.
//
// It wraps the MinIO Go client to provide a simplified interface for common
// operations like uploading, stat-ing, copying and listing objects. This
// abstraction supports both AWS S3 and self-hosted MinIO instances.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it
// easier to mock storage interactions for unit testing (see core/storage/mocks).
//
// # Operations
//
//   - BucketExists / MakeBucket: bucket setup and liveness checks.
//   - PutObject / GetObject: content upload and streaming download.
//   - StatObject: metadata without content; carries the soft-delete marker.
//   - CopyObject: server-side copy; onto itself with ReplaceMetadata it
//     rewrites user metadata in place, which is how blobs are marked for
//     deletion without re-uploading their bytes.
//   - ListObjects / RemoveObject(s): enumeration and physical deletion.
//
// # Key layout
//
// Blob keys embed the owning tenant, a category segment and the entity id
// (see keys.go), so the owning entity of any blob can be derived from the
// key alone.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	exists, err := client.BucketExists(ctx, "mods")
package storage
