package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/University-Of-Livingstonia/ems/internal/domain"
	"github.com/University-Of-Livingstonia/ems/internal/repository"
	"github.com/University-Of-Livingstonia/ems/internal/storage"
)

// ArchiveOptions names the object-storage destination for audit
// archives. A zero Bucket disables archival.
type ArchiveOptions struct {
	Bucket    string
	KeyPrefix string
	// Interval between archive passes when running on a schedule.
	Interval time.Duration
	// Retention bounds how long archived objects are kept. Zero disables
	// pruning.
	Retention time.Duration
	// BatchLimit caps how many entries go into one archive object.
	BatchLimit int
}

func (o *ArchiveOptions) applyDefaults() {
	if o.Interval <= 0 {
		o.Interval = 24 * time.Hour
	}
	if o.BatchLimit <= 0 {
		o.BatchLimit = 1000
	}
}

// Recorder writes audit entries to the store. Every write is
// best-effort: failures are logged and discarded, never surfaced to the
// operation being audited.
type Recorder struct {
	repo    repository.AuditRepository
	store   storage.Service
	log     *logrus.Logger
	archive ArchiveOptions
}

func NewRecorder(repo repository.AuditRepository, logger *logrus.Logger) *Recorder {
	if logger == nil {
		logger = logrus.New()
	}
	return &Recorder{repo: repo, log: logger}
}

// WithArchive attaches an object-storage sink used by Archive, Prune,
// and Run.
func (r *Recorder) WithArchive(store storage.Service, opts ArchiveOptions) *Recorder {
	opts.applyDefaults()
	r.store = store
	r.archive = opts
	return r
}

// Record persists one audit entry. It never returns an error.
func (r *Recorder) Record(ctx context.Context, entry domain.AuditEntry) {
	if r.repo == nil {
		return
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	if _, err := r.repo.Create(ctx, &entry); err != nil {
		r.log.Warnf("audit write (%s by %s): %v", entry.Action, entry.Username, err)
	}
}

// Archive serializes the most recent audit entries to JSON and uploads
// them as one object under a timestamped key. Best-effort like Record,
// but it does report the error so a caller on a schedule can count
// failures.
func (r *Recorder) Archive(ctx context.Context, limit int) error {
	if r.store == nil || r.archive.Bucket == "" {
		return nil
	}

	entries, err := r.repo.ListRecent(ctx, limit)
	if err != nil {
		return fmt.Errorf("load audit entries: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	body, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode audit archive: %w", err)
	}

	key := fmt.Sprintf("%s/audit-%s.json", r.archive.KeyPrefix, time.Now().UTC().Format("20060102T150405Z"))
	if err := r.store.PutObject(ctx, r.archive.Bucket, key, bytes.NewReader(body)); err != nil {
		return fmt.Errorf("upload audit archive: %w", err)
	}

	r.log.Infof("archived %d audit entries to s3://%s/%s", len(entries), r.archive.Bucket, key)
	return nil
}

// Prune deletes archived objects older than the configured retention.
// Archives carry their write time in LastModified, so no key parsing is
// needed.
func (r *Recorder) Prune(ctx context.Context) error {
	if r.store == nil || r.archive.Bucket == "" || r.archive.Retention <= 0 {
		return nil
	}

	objects, err := r.store.ListObjects(ctx, r.archive.Bucket, r.archive.KeyPrefix)
	if err != nil {
		return fmt.Errorf("list audit archives: %w", err)
	}

	cutoff := time.Now().Add(-r.archive.Retention)
	var pruned int
	for _, obj := range objects {
		if obj.LastModified == nil || !obj.LastModified.Before(cutoff) {
			continue
		}
		if err := r.store.DeletePrefix(ctx, r.archive.Bucket, obj.Key); err != nil {
			return fmt.Errorf("delete stale archive %s: %w", obj.Key, err)
		}
		pruned++
	}
	if pruned > 0 {
		r.log.Infof("pruned %d stale audit archives", pruned)
	}
	return nil
}

// Run archives and prunes on the configured interval until ctx is
// cancelled, then takes one final archive pass so entries recorded since
// the last tick are not lost. It returns immediately when no archive
// sink is configured.
func (r *Recorder) Run(ctx context.Context) {
	if r.store == nil || r.archive.Bucket == "" {
		return
	}

	ticker := time.NewTicker(r.archive.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := r.Archive(finalCtx, r.archive.BatchLimit); err != nil {
				r.log.Warnf("final audit archive: %v", err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := r.Archive(ctx, r.archive.BatchLimit); err != nil {
				r.log.Warnf("audit archive: %v", err)
			}
			if err := r.Prune(ctx); err != nil {
				r.log.Warnf("audit prune: %v", err)
			}
		}
	}
}
