// Package store persists search snapshots so results can be revisited and
// compared over time.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/trueinf/geosight-new-sub000/internal/config"
	"github.com/trueinf/geosight-new-sub000/internal/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ErrNotFound is returned when a snapshot does not exist.
var ErrNotFound = eris.New("store: not found")

// SnapshotFilter specifies criteria for listing snapshots.
type SnapshotFilter struct {
	Target string `json:"target,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

func (f SnapshotFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultListLimit
	case f.Limit > maxListLimit:
		return maxListLimit
	default:
		return f.Limit
	}
}

func (f SnapshotFilter) offset() int {
	return max(f.Offset, 0)
}

// Store defines the persistence interface for search snapshots.
type Store interface {
	// SaveSnapshot inserts snap, assigning ID and CreatedAt when unset.
	SaveSnapshot(ctx context.Context, snap *model.Snapshot) error
	GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error)
	// ListSnapshots returns snapshots newest first.
	ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]model.Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// prepare fills the generated fields of snap and encodes its JSON columns.
func prepare(snap *model.Snapshot) (result, analysis []byte, err error) {
	if snap == nil {
		return nil, nil, eris.New("store: nil snapshot")
	}
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	if snap.Result == nil {
		snap.Result = model.NewFetchResult()
	}
	result, err = json.Marshal(snap.Result)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal result")
	}
	if snap.Analysis != nil {
		analysis, err = json.Marshal(snap.Analysis)
		if err != nil {
			return nil, nil, eris.Wrap(err, "store: marshal analysis")
		}
	}
	return result, analysis, nil
}

// decode restores the JSON columns read back from either backend.
func decode(snap *model.Snapshot, result, analysis []byte) error {
	snap.Result = model.NewFetchResult()
	if len(result) > 0 {
		if err := json.Unmarshal(result, snap.Result); err != nil {
			return eris.Wrapf(err, "store: unmarshal result for %s", snap.ID)
		}
	}
	if len(analysis) > 0 {
		snap.Analysis = &model.TargetAnalysis{}
		if err := json.Unmarshal(analysis, snap.Analysis); err != nil {
			return eris.Wrapf(err, "store: unmarshal analysis for %s", snap.ID)
		}
	}
	return nil
}
