package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapbind/pkg/catalog"
)

// ErrSnapshotNotFound is returned when no snapshot matches a reference.
var ErrSnapshotNotFound = errors.New("snapshot not found")

const snapshotColumns = `id, label, source, relation_count, type_count, created_at`

// SaveSnapshot stores def under a new ID.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, def *catalog.Definition, label, source string) (*Snapshot, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if def == nil {
		return nil, fmt.Errorf("cannot save an empty catalog definition")
	}

	data, err := catalog.Marshal(def)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ID:            generateID(),
		Label:         label,
		Source:        source,
		RelationCount: len(def.Relations),
		TypeCount:     len(def.Types),
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO catalog_snapshots
		(id, label, source, relation_count, type_count, definition, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.Label, snap.Source, snap.RelationCount, snap.TypeCount, string(data), snap.CreatedAt.UnixMicro())
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	s.logger.Debug("saved catalog snapshot",
		slog.String("id", snap.ID),
		slog.String("label", label),
		slog.Int("relations", snap.RelationCount))
	return snap, nil
}

// GetSnapshot returns the snapshot whose ID is ref or, failing that, the
// newest snapshot labelled ref.
func (s *SQLiteStore) GetSnapshot(ctx context.Context, ref string) (*Snapshot, error) {
	id, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM catalog_snapshots WHERE id = ?`, id)
	return scanSnapshot(row)
}

// LoadDefinition returns the catalog definition stored by GetSnapshot(ref).
func (s *SQLiteStore) LoadDefinition(ctx context.Context, ref string) (*catalog.Definition, error) {
	id, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	var data string
	err = s.db.QueryRowContext(ctx, `SELECT definition FROM catalog_snapshots WHERE id = ?`, id).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("get snapshot definition: %w", err)
	}

	def, err := catalog.Parse([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	return def, nil
}

// ListSnapshots returns all snapshots, newest first.
func (s *SQLiteStore) ListSnapshots(ctx context.Context) ([]*Snapshot, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+snapshotColumns+` FROM catalog_snapshots
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// DeleteSnapshot removes the snapshot with the given ID.
func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, id string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM catalog_snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	return nil
}

// PruneSnapshots removes all but the newest keep snapshots and reports how
// many were deleted.
func (s *SQLiteStore) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}
	if keep < 0 {
		keep = 0
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM catalog_snapshots
		WHERE id NOT IN (
			SELECT id FROM catalog_snapshots
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

// resolve maps an ID or label onto a snapshot ID.
func (s *SQLiteStore) resolve(ctx context.Context, ref string) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("database not opened")
	}

	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM catalog_snapshots
		WHERE id = ? OR label = ?
		ORDER BY (id = ?) DESC, created_at DESC, rowid DESC
		LIMIT 1
	`, ref, ref, ref).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrSnapshotNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("resolve snapshot %s: %w", ref, err)
	}
	return id, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*Snapshot, error) {
	var (
		snap    Snapshot
		created int64
	)
	if err := row.Scan(&snap.ID, &snap.Label, &snap.Source, &snap.RelationCount, &snap.TypeCount, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	snap.CreatedAt = time.UnixMicro(created).UTC()
	return &snap, nil
}
