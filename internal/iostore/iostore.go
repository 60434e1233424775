// Package iostore persists index points and ingest runs in SQL databases.
package iostore

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/schema"
)

// StoreManager owns the point store and the optional run log for one process.
// It is constructed explicitly and passed to whatever needs persistence.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during shutdown
	db           *sql.DB // Handle shared by both stores; nil for NoneBackend or injected stores
	points       contract.PointStore
	runs         contract.RunStore
}

// OpenStores opens the point store and, when recordRuns is set, the run log on the same database.
// Both stores share one connection pool, so SQLite writers queue on its single connection
// instead of failing with SQLITE_BUSY.
func OpenStores(backend schema.DatabaseBackend, connStr string, recordRuns bool, logger *contract.Logger) (*StoreManager, error) {
	if backend == schema.NoneBackend {
		mgr := &StoreManager{points: newPointStore(nil, backend, logger, false)}
		if recordRuns {
			mgr.runs = newRunStore(nil, backend, logger, false)
		}
		return mgr, nil
	}

	if recordRuns {
		if err := migrateRunsLatest(backend, connStr, logger); err != nil {
			return nil, fmt.Errorf("failed to initialize run log: %w", err)
		}
	}

	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize point store: %w", contract.NewPersistenceError("open point store", err))
	}

	mgr := &StoreManager{db: db, points: newPointStore(db, backend, logger, false)}
	if recordRuns {
		mgr.runs = newRunStore(db, backend, logger, false)
	}
	return mgr, nil
}

// NewStoreManager wraps already constructed stores. runs may be nil.
func NewStoreManager(points contract.PointStore, runs contract.RunStore) *StoreManager {
	return &StoreManager{points: points, runs: runs}
}

// Points returns the point store.
func (mgr *StoreManager) Points() contract.PointStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.points
}

// Runs returns the run log, or nil when run recording is disabled.
func (mgr *StoreManager) Runs() contract.RunStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.runs
}

// Close releases both stores. It is safe to call more than once.
func (mgr *StoreManager) Close() error {
	mgr.Lock()
	defer mgr.Unlock()

	var errs []error
	if mgr.points != nil {
		errs = append(errs, mgr.points.Close())
		mgr.points = nil
	}
	if mgr.runs != nil {
		errs = append(errs, mgr.runs.Close())
		mgr.runs = nil
	}
	if mgr.db != nil {
		errs = append(errs, mgr.db.Close())
		mgr.db = nil
	}
	return errors.Join(errs...)
}
