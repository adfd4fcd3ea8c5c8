package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/costlens/costlens-engine/internal/engine/anomaly"
)

// Package registry keeps the per-tenant model snapshots.
//
// Responsibilities:
//   - Assign monotonically increasing versions to new snapshots
//   - Persist each snapshot durably before it becomes visible to readers
//   - Serve the latest frozen snapshot for scoring; readers see the old
//     version until the new one is fully written and swapped in
//
// Snapshots are immutable; the registry never mutates a stored model. A
// scoring call holding a snapshot is unaffected by a concurrent training
// run for the same tenant.

// ErrNotFound is returned when a tenant has no trained model yet.
var ErrNotFound = errors.New("registry: no model snapshot for tenant")

// SnapshotStore is the durable backing for the registry.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot *anomaly.ModelSnapshot) error
	Latest(ctx context.Context, tenantID string) (*anomaly.ModelSnapshot, error)
	LatestVersion(ctx context.Context, tenantID string) (int, error)
}

// Registry is the versioned, tenant-keyed model registry. It may run purely
// in memory (nil store) for embedded library use.
type Registry struct {
	mu    sync.RWMutex
	cache map[string]*anomaly.ModelSnapshot
	store SnapshotStore
	log   *zap.Logger
}

// New creates a registry. store may be nil for in-memory operation; a nil
// logger disables logging.
func New(store SnapshotStore, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		cache: make(map[string]*anomaly.ModelSnapshot),
		store: store,
		log:   log,
	}
}

// Put versions the snapshot and makes it the tenant's latest. The snapshot
// is persisted before the in-memory swap, so concurrent readers keep the
// previous version until the new one is durable.
func (r *Registry) Put(ctx context.Context, snapshot *anomaly.ModelSnapshot) error {
	if snapshot == nil {
		return errors.New("registry: nil snapshot")
	}

	version, err := r.nextVersion(ctx, snapshot.TenantID)
	if err != nil {
		return err
	}
	snapshot.Version = version

	if r.store != nil {
		if err := r.store.Save(ctx, snapshot); err != nil {
			return fmt.Errorf("persist snapshot: %w", err)
		}
	}

	r.mu.Lock()
	r.cache[snapshot.TenantID] = snapshot
	r.mu.Unlock()

	r.log.Info("model snapshot registered",
		zap.String("tenant_id", snapshot.TenantID),
		zap.String("snapshot_id", snapshot.ID),
		zap.Int("version", version))
	return nil
}

// Latest returns the tenant's current frozen snapshot.
func (r *Registry) Latest(ctx context.Context, tenantID string) (*anomaly.ModelSnapshot, error) {
	r.mu.RLock()
	snapshot, ok := r.cache[tenantID]
	r.mu.RUnlock()
	if ok {
		return snapshot, nil
	}

	if r.store == nil {
		return nil, ErrNotFound
	}
	snapshot, err := r.store.Latest(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	// Another goroutine may have loaded or trained meanwhile; keep the
	// higher version.
	if cached, ok := r.cache[tenantID]; !ok || cached.Version < snapshot.Version {
		r.cache[tenantID] = snapshot
	} else {
		snapshot = cached
	}
	r.mu.Unlock()
	return snapshot, nil
}

func (r *Registry) nextVersion(ctx context.Context, tenantID string) (int, error) {
	if r.store != nil {
		stored, err := r.store.LatestVersion(ctx, tenantID)
		if err != nil {
			return 0, fmt.Errorf("next version: %w", err)
		}
		return stored + 1, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if cached, ok := r.cache[tenantID]; ok {
		return cached.Version + 1, nil
	}
	return 1, nil
}
