package join

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"S3Joiner/internal/config"
	"S3Joiner/internal/objstore"
	"S3Joiner/internal/s3"
)

// PruneStore is the subset of objstore.Storage that retention needs.
type PruneStore interface {
	objstore.Lister
	objstore.Opener
	objstore.Writer
	objstore.Deleter
}

// ApplyRetention deletes the joined outputs of job whose date is older than
// the retention window, together with their manifests. If the latest pointer
// referenced a deleted output it is moved to the newest remaining manifest, or
// removed when none remain.
func ApplyRetention(ctx context.Context, store PruneStore, job string, retention *config.RetentionConfig, now time.Time, log zerolog.Logger) (deleted int, err error) {
	if retention == nil || config.RetainUntil(now, retention).IsZero() {
		return 0, nil
	}

	dates, err := ListManifests(ctx, store, job)
	if err != nil {
		return 0, fmt.Errorf("list manifests: %w", err)
	}

	deletedKeys := make(map[string]struct{})
	var kept []string
	for _, date := range dates {
		day, _ := s3.ParseDateStamp(date)
		if !config.IsExpired(day, now, retention) {
			kept = append(kept, date)
			continue
		}
		m, err := ReadManifest(ctx, store, job, date)
		if err != nil {
			return deleted, err
		}
		if m.Key != "" {
			if err := store.DeleteObject(ctx, m.Key); err != nil {
				return deleted, fmt.Errorf("delete %s: %w", m.Key, err)
			}
			deletedKeys[m.Key] = struct{}{}
		}
		if err := store.DeleteObject(ctx, s3.ManifestKey(job, date)); err != nil {
			return deleted, fmt.Errorf("delete manifest %s: %w", date, err)
		}
		log.Info().Str("job", job).Str("date", date).Str("key", m.Key).Msg("pruned joined output")
		deleted++
	}

	latest, err := ReadLatest(ctx, store, job)
	if err != nil {
		if errors.Is(err, objstore.ErrNotFound) {
			return deleted, nil
		}
		return deleted, err
	}
	if _, removed := deletedKeys[latest.Key]; !removed {
		return deleted, nil
	}

	if len(kept) > 0 {
		newest := kept[len(kept)-1]
		m, err := ReadManifest(ctx, store, job, newest)
		if err != nil {
			return deleted, err
		}
		return deleted, WriteLatest(ctx, store, job, newest, m.Key)
	}
	return deleted, store.DeleteObject(ctx, s3.LatestKey(job))
}
