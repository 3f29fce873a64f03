package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapbind/internal/cli/output"
	"github.com/leapstack-labs/leapbind/internal/state"
)

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage stored catalog snapshots",
		Long: `Catalog snapshots are imported catalogs kept in the state database
(--state). Bind against one with --snapshot <id or label>.`,
	}

	cmd.AddCommand(newSnapshotListCommand())
	cmd.AddCommand(newSnapshotShowCommand())
	cmd.AddCommand(newSnapshotDeleteCommand())
	cmd.AddCommand(newSnapshotPruneCommand())
	return cmd
}

// withStore opens the snapshot store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(*CommandContext, state.Store) error) error {
	cmdCtx := NewCommandContextWithoutSession(cmd)
	store, err := openStore(cmdCtx.Cfg.StatePath, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(cmdCtx, store)
}

type snapshotJSON struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Source    string    `json:"source"`
	Relations int       `json:"relations"`
	Types     int       `json:"types"`
	CreatedAt time.Time `json:"created_at"`
}

func newSnapshotJSON(s *state.Snapshot) snapshotJSON {
	return snapshotJSON{
		ID:        s.ID,
		Label:     s.Label,
		Source:    s.Source,
		Relations: s.RelationCount,
		Types:     s.TypeCount,
		CreatedAt: s.CreatedAt,
	}
}

func newSnapshotListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(cmdCtx *CommandContext, store state.Store) error {
				snaps, err := store.ListSnapshots(cmd.Context())
				if err != nil {
					return err
				}
				return renderSnapshots(cmdCtx.Renderer, snaps)
			})
		},
	}
}

func renderSnapshots(r *output.Renderer, snaps []*state.Snapshot) error {
	if r.EffectiveMode() == output.ModeJSON {
		out := make([]snapshotJSON, 0, len(snaps))
		for _, s := range snaps {
			out = append(out, newSnapshotJSON(s))
		}
		return r.JSON(out)
	}

	if len(snaps) == 0 {
		r.Muted("No snapshots. Create one with: leapbind catalog import --dsn ...")
		return nil
	}
	rows := make([][]string, 0, len(snaps))
	for _, s := range snaps {
		rows = append(rows, []string{
			s.ID, s.Label, s.Source,
			strconv.Itoa(s.RelationCount),
			s.CreatedAt.Local().Format(time.DateTime),
		})
	}
	r.Table([]string{"ID", "Label", "Source", "Relations", "Created"}, rows)
	return nil
}

func newSnapshotShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|label>",
		Short: "Show one snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(cmdCtx *CommandContext, store state.Store) error {
				snap, err := store.GetSnapshot(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				def, err := store.LoadDefinition(cmd.Context(), snap.ID)
				if err != nil {
					return err
				}

				r := cmdCtx.Renderer
				if r.EffectiveMode() == output.ModeJSON {
					return r.JSON(newSnapshotJSON(snap))
				}
				r.Header(1, "Snapshot "+snap.ID)
				r.KeyValue("Label", snap.Label)
				r.KeyValue("Source", snap.Source)
				r.KeyValue("Created", snap.CreatedAt.Local().Format(time.DateTime))
				r.KeyValue("Types", strconv.Itoa(snap.TypeCount))
				rows := make([][]string, 0, len(def.Relations))
				for _, rel := range def.Relations {
					rows = append(rows, []string{rel.Name, strconv.Itoa(len(rel.Columns))})
				}
				r.Table([]string{"Relation", "Columns"}, rows)
				return nil
			})
		},
	}
}

func newSnapshotDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(cmdCtx *CommandContext, store state.Store) error {
				if err := store.DeleteSnapshot(cmd.Context(), args[0]); err != nil {
					return err
				}
				cmdCtx.Renderer.Success("Deleted snapshot " + args[0])
				return nil
			})
		},
	}
}

func newSnapshotPruneCommand() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keep < 0 {
				return fmt.Errorf("--keep must not be negative")
			}
			return withStore(cmd, func(cmdCtx *CommandContext, store state.Store) error {
				n, err := store.PruneSnapshots(cmd.Context(), keep)
				if err != nil {
					return err
				}
				cmdCtx.Renderer.Success(fmt.Sprintf("Pruned %d snapshots", n))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 5, "Number of snapshots to keep")
	return cmd
}
