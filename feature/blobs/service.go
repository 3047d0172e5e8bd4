package blobs

import (
	"context"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"mod-registry/core/apperr"
	"mod-registry/core/entity"
	"mod-registry/core/reconcile"
	"mod-registry/core/storage"
)

// Service handles the blob lifecycle: listing, soft-delete marking, the
// grace-period sweep and the orphan/duplicate scan. Blobs are never
// deleted directly; deletion always goes mark first, sweep later.
type Service struct {
	entities *entity.Store
	indexes  *entity.Index
	client   storage.Client
	bucket   string
	logger   *zap.Logger
	cfg      Config

	now func() time.Time
}

// NewService creates a new blobs service.
func NewService(entities *entity.Store, indexes *entity.Index, client storage.Client, bucket string,
	logger *zap.Logger, cfg Config) *Service {
	return &Service{
		entities: entities,
		indexes:  indexes,
		client:   client,
		bucket:   bucket,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// BlobEntry is one listed blob with its soft-delete state.
type BlobEntry struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	Marked       bool      `json:"marked"`
	MarkedOn     time.Time `json:"marked_on,omitempty"`
}

// List pages through the bucket in key order. The cursor is the last key
// of the previous page; empty means start from the beginning. An empty
// next cursor means the listing is exhausted.
func (s *Service) List(ctx context.Context, prefix, cursor string, limit int) ([]BlobEntry, string, error) {
	if limit <= 0 {
		limit = s.cfg.ListPageSize
	}

	entries := make([]BlobEntry, 0, limit)
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:       prefix,
		Recursive:    true,
		WithMetadata: true,
		StartAfter:   cursor,
	}) {
		if info.Err != nil {
			return nil, "", apperr.Wrap(apperr.KindUnavailable, info.Err, "list blobs")
		}
		marked, markedOn := markedForDeletion(info.UserMetadata)
		entries = append(entries, BlobEntry{
			Key:          info.Key,
			Size:         info.Size,
			LastModified: info.LastModified,
			Marked:       marked,
			MarkedOn:     markedOn,
		})
		if len(entries) == limit {
			return entries, info.Key, nil
		}
	}
	return entries, "", nil
}

// IsProtected reports whether a blob may not be marked for deletion, with
// the reason. A blob is protected while the entity its key references
// still exists; keys outside the layout are never protected.
func (s *Service) IsProtected(ctx context.Context, key string) (bool, string, error) {
	ref, ok := storage.ParseKey(key)
	if !ok {
		return false, "", nil
	}

	owner := entity.Private(ref.TenantID)
	switch ref.Category {
	case storage.CategoryThumbnails:
		exists, err := s.entities.Exists(ctx, owner, entity.TypeMod, ref.ModID)
		if err != nil {
			return false, "", err
		}
		if exists {
			return true, "thumbnail of an existing mod", nil
		}
	case storage.CategoryVersions:
		exists, err := s.entities.Exists(ctx, owner, entity.TypeVersion, ref.EntityID)
		if err != nil {
			return false, "", err
		}
		if exists {
			return true, "referenced by an existing version", nil
		}
	case storage.CategoryVariants:
		exists, err := s.entities.Exists(ctx, owner, entity.TypeVariant, ref.EntityID)
		if err != nil {
			return false, "", err
		}
		if exists {
			return true, "referenced by an existing variant", nil
		}
	}
	return false, "", nil
}

// Mark stamps the soft-delete marker on a blob by rewriting its user
// metadata in place. Protected blobs are refused. Re-marking an already
// marked blob keeps the original timestamp, so repeated marks never
// extend the grace period.
func (s *Service) Mark(ctx context.Context, key string) (*BlobEntry, error) {
	protected, reason, err := s.IsProtected(ctx, key)
	if err != nil {
		return nil, err
	}
	if protected {
		return nil, apperr.New(apperr.KindConflict, "blob %s is protected: %s", key, reason)
	}

	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, apperr.New(apperr.KindNotFound, "blob %s not found", key)
		}
		return nil, apperr.Wrap(apperr.KindUnavailable, err, "stat blob %s", key)
	}

	marked, markedOn := markedForDeletion(info.UserMetadata)
	if marked && !markedOn.IsZero() {
		return &BlobEntry{Key: key, Size: info.Size, LastModified: info.LastModified,
			Marked: true, MarkedOn: markedOn}, nil
	}
	// A marker without a timestamp is repaired by stamping now.
	markedOn = s.now()

	meta := carryUserMetadata(info.UserMetadata)
	meta[metaMarked] = "true"
	meta[metaMarkedOn] = markedOn.Format(time.RFC3339)
	if err := s.rewriteMetadata(ctx, key, meta); err != nil {
		return nil, err
	}

	s.logger.Info("blob marked for deletion", zap.String("key", key))
	return &BlobEntry{Key: key, Size: info.Size, LastModified: info.LastModified,
		Marked: true, MarkedOn: markedOn}, nil
}

// Unmark clears the soft-delete marker, rescuing the blob from the next
// sweep. Unmarking an unmarked blob is not an error.
func (s *Service) Unmark(ctx context.Context, key string) error {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return apperr.New(apperr.KindNotFound, "blob %s not found", key)
		}
		return apperr.Wrap(apperr.KindUnavailable, err, "stat blob %s", key)
	}
	if marked, _ := markedForDeletion(info.UserMetadata); !marked {
		return nil
	}
	if err := s.rewriteMetadata(ctx, key, carryUserMetadata(info.UserMetadata)); err != nil {
		return err
	}
	s.logger.Info("blob unmarked", zap.String("key", key))
	return nil
}

// MarkResult is the per-key outcome of a bulk mark.
type MarkResult struct {
	Key       string `json:"key"`
	Marked    bool   `json:"marked"`
	Protected bool   `json:"protected"`
	Error     string `json:"error,omitempty"`
}

// MarkBulk marks a batch of blobs, reporting each key's outcome instead
// of failing the batch on the first protected or missing one.
func (s *Service) MarkBulk(ctx context.Context, keys []string) []MarkResult {
	results := make([]MarkResult, 0, len(keys))
	for _, key := range keys {
		_, err := s.Mark(ctx, key)
		result := MarkResult{Key: key, Marked: err == nil}
		if err != nil {
			result.Protected = apperr.IsKind(err, apperr.KindConflict)
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}

// SweepReport summarizes one grace-period sweep.
type SweepReport struct {
	// Scanned is the number of blobs examined.
	Scanned int `json:"scanned"`
	// Marked counts blobs carrying the marker, expired or not.
	Marked int `json:"marked"`
	// Deleted counts blobs removed because their grace period expired.
	Deleted int `json:"deleted"`
	// Errored counts blobs whose deletion failed; they stay marked and the
	// next sweep retries them.
	Errored int `json:"errored"`
}

// SweepAndDelete walks the bucket and removes every marked blob whose
// grace period has expired. Blobs marked without a parseable timestamp
// are never deleted. graceDays zero or negative falls back to the
// configured default.
func (s *Service) SweepAndDelete(ctx context.Context, graceDays int) (*SweepReport, error) {
	if graceDays <= 0 {
		graceDays = s.cfg.GraceDays
	}
	deadline := s.now().AddDate(0, 0, -graceDays)

	report := &SweepReport{}
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Recursive:    true,
		WithMetadata: true,
	}) {
		if info.Err != nil {
			return report, apperr.Wrap(apperr.KindUnavailable, info.Err, "sweep listing")
		}
		report.Scanned++

		marked, markedOn := markedForDeletion(info.UserMetadata)
		if !marked {
			continue
		}
		report.Marked++
		if markedOn.IsZero() || markedOn.After(deadline) {
			continue
		}

		if err := s.client.RemoveObject(ctx, s.bucket, info.Key, minio.RemoveObjectOptions{}); err != nil {
			report.Errored++
			s.logger.Warn("sweep deletion failed", zap.String("key", info.Key), zap.Error(err))
			continue
		}
		report.Deleted++
		s.logger.Info("blob deleted after grace period",
			zap.String("key", info.Key), zap.Time("marked_on", markedOn))
	}

	s.logger.Info("sweep finished",
		zap.Int("scanned", report.Scanned), zap.Int("marked", report.Marked),
		zap.Int("deleted", report.Deleted), zap.Int("errored", report.Errored))
	return report, nil
}

// Scan cross-references the bucket against the entity graph and reports
// orphans and duplicate candidates. Nothing is deleted.
func (s *Service) Scan(ctx context.Context) (*reconcile.Report, error) {
	return reconcile.ScanAll(ctx, &reconcile.Spec{
		Adapter:  s.adapter(),
		CacheTTL: time.Duration(s.cfg.ScanCacheSeconds) * time.Second,
	})
}

// rewriteMetadata replaces a blob's user metadata by copying the object
// onto itself, leaving the content untouched.
func (s *Service) rewriteMetadata(ctx context.Context, key string, meta map[string]string) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{
			Bucket:          s.bucket,
			Object:          key,
			UserMetadata:    meta,
			ReplaceMetadata: true,
		},
		minio.CopySrcOptions{Bucket: s.bucket, Object: key},
	)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, err, "rewrite metadata of %s", key)
	}
	return nil
}

// carryUserMetadata returns the metadata entries to keep across a rewrite,
// with marker keys dropped and backend prefixes normalized away.
func carryUserMetadata(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		normalized := normalizeMetaKey(k)
		if normalized == metaMarked || normalized == metaMarkedOn {
			continue
		}
		out[normalized] = v
	}
	return out
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
