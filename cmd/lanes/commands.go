package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hylla/lanes/internal/adapters/storage/sqlite"
	"github.com/hylla/lanes/internal/app"
	"github.com/hylla/lanes/internal/domain"
	"github.com/spf13/cobra"
)

func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, configPath, dbPath, _, err := opts.resolvePaths()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", configPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", dbPath)
			return nil
		},
	}
}

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the stored board as a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withStoredBoard(cmd, "list", func(_ *runtimeEnv, svc *app.Service, _ *sqlite.Repository) error {
				_, err := io.WriteString(cmd.OutOrStdout(), renderBoardTable(svc.View())+"\n")
				return err
			})
		},
	}
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored board as snapshot JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withStoredBoard(cmd, "export", func(_ *runtimeEnv, svc *app.Service, _ *sqlite.Repository) error {
				return writeSnapshot(svc.ExportSnapshot(), outPath, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the stored board with a snapshot JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := readSnapshot(inPath)
			if err != nil {
				return err
			}
			return opts.withStoredBoard(cmd, "import", func(env *runtimeEnv, svc *app.Service, _ *sqlite.Repository) error {
				view, err := svc.ImportSnapshot(cmd.Context(), snap)
				if err != nil {
					return fmt.Errorf("import snapshot: %w", err)
				}
				if err := svc.Flush(cmd.Context()); err != nil {
					return fmt.Errorf("import snapshot: %w", err)
				}
				env.logger.Info("snapshot imported", "path", inPath, "tasks", view.Board.Len())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot JSON file")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent board changes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			return opts.withStoredBoard(cmd, "history", func(_ *runtimeEnv, svc *app.Service, repo *sqlite.Repository) error {
				events, err := repo.ListChangeEvents(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("list change events: %w", err)
				}
				_, err = io.WriteString(cmd.OutOrStdout(), renderHistoryTable(events, svc.LaneSet())+"\n")
				return err
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of changes to print")
	return cmd
}

// writeSnapshot encodes snap as indented JSON to a file, or to stdout for "-".
func writeSnapshot(snap app.Snapshot, outPath string, stdout io.Writer) error {
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot json: %w", err)
	}
	encoded = append(encoded, '\n')

	if outPath == "-" || strings.TrimSpace(outPath) == "" {
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write snapshot to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// readSnapshot decodes a snapshot file. Validation happens on import.
func readSnapshot(inPath string) (app.Snapshot, error) {
	if strings.TrimSpace(inPath) == "" {
		return app.Snapshot{}, fmt.Errorf("--in is required")
	}
	content, err := os.ReadFile(inPath)
	if err != nil {
		return app.Snapshot{}, fmt.Errorf("read import file: %w", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return app.Snapshot{}, fmt.Errorf("decode snapshot json: %w", err)
	}
	return snap, nil
}

var (
	tableBorder = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	tableHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Padding(0, 1)
	tableCell   = lipgloss.NewStyle().Padding(0, 1)
)

// newTable returns a bordered table with the shared header style.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorder).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeader
			}
			return tableCell
		})
}

// renderBoardTable lists every task in lane order.
func renderBoardTable(v app.View) string {
	t := newTable("Lane", "#", "Title", "Subtasks", "ID")
	lanes := v.Board.LaneSet()
	for _, lane := range lanes.Lanes() {
		for pos, task := range v.Board.Tasks(lane.ID) {
			t.Row(lane.Name, strconv.Itoa(pos+1), task.Title, strconv.Itoa(len(task.Subtasks)), task.ID)
		}
	}
	summary := fmt.Sprintf("%d tasks", v.Board.Len())
	return t.Render() + "\n" + summary
}

// renderHistoryTable lists change events with lane names resolved.
func renderHistoryTable(events []domain.ChangeEvent, lanes domain.LaneSet) string {
	if len(events) == 0 {
		return "no changes recorded"
	}
	name := func(id domain.LaneID) string {
		if id == "" {
			return "-"
		}
		if lane, ok := lanes.Lane(id); ok {
			return lane.Name
		}
		return string(id)
	}
	t := newTable("When", "Change", "Title", "From", "To")
	for _, event := range events {
		t.Row(
			event.OccurredAt.Local().Format(time.DateTime),
			string(event.Operation),
			event.Title,
			name(event.FromLane),
			name(event.ToLane),
		)
	}
	return t.Render()
}
