// Package state persists catalog snapshots in SQLite.
//
// A snapshot is a catalog definition captured at a point in time, usually
// after introspecting a live database, so that expressions can later be
// bound against exactly the same catalog without a connection.
package state

import (
	"context"
	"time"

	"github.com/leapstack-labs/leapbind/pkg/catalog"
)

// Store is the snapshot persistence interface.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	SaveSnapshot(ctx context.Context, def *catalog.Definition, label, source string) (*Snapshot, error)
	GetSnapshot(ctx context.Context, ref string) (*Snapshot, error)
	LoadDefinition(ctx context.Context, ref string) (*catalog.Definition, error)
	ListSnapshots(ctx context.Context) ([]*Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error
	PruneSnapshots(ctx context.Context, keep int) (int64, error)
}

// Snapshot describes a stored catalog definition.
type Snapshot struct {
	ID            string
	Label         string
	Source        string // where the definition came from, e.g. a file path or "postgres"
	RelationCount int
	TypeCount     int
	CreatedAt     time.Time
}

var _ Store = (*SQLiteStore)(nil)
