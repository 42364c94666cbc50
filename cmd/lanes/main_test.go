package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/hylla/lanes/internal/app"
	"github.com/hylla/lanes/internal/config"
	"github.com/hylla/lanes/internal/domain"
	"github.com/hylla/lanes/internal/tui"
)

// TestMain keeps CLI tests off the dev log file sink.
func TestMain(m *testing.M) {
	_ = os.Setenv("LANES_DEV_MODE", "false")
	os.Exit(m.Run())
}

type fakeProgram struct {
	runErr error
}

func (f fakeProgram) Run() (tea.Model, error) {
	return nil, f.runErr
}

// scriptedProgram feeds messages straight into the model instead of a terminal.
type scriptedProgram struct {
	model tea.Model
	msgs  []tea.Msg
}

func (p scriptedProgram) Run() (tea.Model, error) {
	out := p.model
	for _, msg := range p.msgs {
		out, _ = out.Update(msg)
	}
	return out, nil
}

func stubProgram(t *testing.T, factory func(tea.Model) program) {
	t.Helper()
	orig := programFactory
	t.Cleanup(func() { programFactory = orig })
	programFactory = factory
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

const persistedConfig = `
[identity]
display_name = "Test User"

[database]
persist = true
`

func keyPress(text string) []tea.Msg {
	msgs := make([]tea.Msg, 0, len(text))
	for _, r := range text {
		msgs = append(msgs, tea.KeyPressMsg{Code: r, Text: string(r)})
	}
	return msgs
}

func runArgs(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr strings.Builder
	err := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRunPaths(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.toml")
	dbPath := filepath.Join(tmp, "board.db")
	out, _, err := runArgs(t, "", "--app", "lanes-test", "--config", cfgPath, "--db", dbPath, "paths")
	if err != nil {
		t.Fatalf("run(paths) error = %v", err)
	}
	for _, want := range []string{"app: lanes-test", "dev_mode: false", "config: " + cfgPath, "db: " + dbPath} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output %q", want, out)
		}
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	if _, _, err := runArgs(t, "", "frobnicate"); err == nil {
		t.Fatal("expected unknown command error")
	}
}

func TestRunStartsProgram(t *testing.T) {
	stubProgram(t, func(tea.Model) program { return fakeProgram{} })
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.toml")
	writeConfig(t, cfgPath, "[identity]\ndisplay_name = \"Test User\"\n")

	if _, _, err := runArgs(t, "", "--config", cfgPath, "--db", filepath.Join(tmp, "board.db")); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, "board.db")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no database without persist, stat err = %v", err)
	}
}

func TestRunProgramErrorIsReturned(t *testing.T) {
	stubProgram(t, func(tea.Model) program { return fakeProgram{runErr: errors.New("tty gone")} })
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.toml")
	writeConfig(t, cfgPath, "[identity]\ndisplay_name = \"Test User\"\n")

	_, _, err := runArgs(t, "", "--config", cfgPath, "--db", filepath.Join(tmp, "board.db"))
	if err == nil || !strings.Contains(err.Error(), "tty gone") {
		t.Fatalf("expected program error, got %v", err)
	}
}

func TestRunBootstrapsIdentity(t *testing.T) {
	stubProgram(t, func(tea.Model) program { return fakeProgram{} })
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.toml")

	_, stderr, err := runArgs(t, "\nAda\n", "--config", cfgPath, "--db", filepath.Join(tmp, "board.db"))
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(stderr, "Display name: ") || !strings.Contains(stderr, "display name is required") {
		t.Fatalf("expected prompt and retry in stderr, got %q", stderr)
	}
	cfg, err := config.Load(cfgPath, config.Default(filepath.Join(tmp, "board.db")))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Identity.DisplayName != "Ada" {
		t.Fatalf("expected persisted identity, got %q", cfg.Identity.DisplayName)
	}
}

func TestRunBootstrapWithoutAnswerFails(t *testing.T) {
	stubProgram(t, func(tea.Model) program {
		t.Fatal("program must not start without an identity")
		return nil
	})
	tmp := t.TempDir()
	_, _, err := runArgs(t, "", "--config", filepath.Join(tmp, "config.toml"), "--db", filepath.Join(tmp, "board.db"))
	if err == nil || !strings.Contains(err.Error(), "display name is required") {
		t.Fatalf("expected bootstrap failure, got %v", err)
	}
}

func TestRunBoardPersistsAcrossCommands(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.toml")
	dbPath := filepath.Join(tmp, "board.db")
	writeConfig(t, cfgPath, persistedConfig)

	stubProgram(t, func(m tea.Model) program {
		msgs := []tea.Msg{tea.WindowSizeMsg{Width: 120, Height: 40}}
		msgs = append(msgs, keyPress("n")...)
		msgs = append(msgs, keyPress("Write docs")...)
		msgs = append(msgs, tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl})
		msgs = append(msgs, keyPress("]")...)
		return scriptedProgram{model: m, msgs: msgs}
	})
	if _, _, err := runArgs(t, "", "--config", cfgPath, "--db", dbPath); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	out, _, err := runArgs(t, "", "--config", cfgPath, "--db", dbPath, "list")
	if err != nil {
		t.Fatalf("run(list) error = %v", err)
	}
	for _, want := range []string{"Doing", "Write docs", "1 tasks"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in list output:\n%s", want, out)
		}
	}

	out, _, err = runArgs(t, "", "--config", cfgPath, "--db", dbPath, "history", "--limit", "5")
	if err != nil {
		t.Fatalf("run(history) error = %v", err)
	}
	if !strings.Contains(out, "create") || !strings.Contains(out, "move") {
		t.Fatalf("expected create and move in history:\n%s", out)
	}
	if strings.Index(out, "move") > strings.Index(out, "create") {
		t.Fatalf("expected newest change first:\n%s", out)
	}
	if strings.Contains(out, "restore") {
		t.Fatalf("loading the board should not be recorded as a change:\n%s", out)
	}
}

func TestRunExportImportRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.toml")
	writeConfig(t, cfgPath, "[identity]\ndisplay_name = \"Test User\"\n")

	snap := app.Snapshot{
		Version: app.SnapshotVersion,
		Tasks: []app.SnapshotTask{
			{ID: "a", Lane: "todo", Position: 0, Title: "first", Subtasks: []string{"x"}},
			{ID: "b", Lane: "done", Position: 0, Title: "shipped", Subtasks: []string{}},
		},
	}
	inPath := filepath.Join(tmp, "in.json")
	encoded, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	writeConfig(t, inPath, string(encoded))

	dbPath := filepath.Join(tmp, "board.db")
	if _, _, err := runArgs(t, "", "--config", cfgPath, "--db", dbPath, "import", "--in", inPath); err != nil {
		t.Fatalf("run(import) error = %v", err)
	}

	outPath := filepath.Join(tmp, "out", "snapshot.json")
	if _, _, err := runArgs(t, "", "--config", cfgPath, "--db", dbPath, "export", "--out", outPath); err != nil {
		t.Fatalf("run(export) error = %v", err)
	}
	content, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var got app.Snapshot
	if err := json.Unmarshal(content, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Version != app.SnapshotVersion || len(got.Tasks) != 2 || len(got.Lanes) != 3 {
		t.Fatalf("unexpected export %#v", got)
	}
	if got.Tasks[0].Title != "first" || got.Tasks[1].Lane != "done" {
		t.Fatalf("unexpected task order %#v", got.Tasks)
	}

	stdout, _, err := runArgs(t, "", "--config", cfgPath, "--db", dbPath, "export")
	if err != nil {
		t.Fatalf("run(export stdout) error = %v", err)
	}
	if !strings.Contains(stdout, `"shipped"`) {
		t.Fatalf("expected snapshot on stdout, got %q", stdout)
	}
}

func TestRunImportRejectsBadSnapshot(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.toml")
	writeConfig(t, cfgPath, "[identity]\ndisplay_name = \"Test User\"\n")
	inPath := filepath.Join(tmp, "in.json")
	writeConfig(t, inPath, `{"version":"other.v9","tasks":[]}`)

	_, _, err := runArgs(t, "", "--config", cfgPath, "--db", filepath.Join(tmp, "board.db"), "import", "--in", inPath)
	if !errors.Is(err, app.ErrUnsupportedVersion) {
		t.Fatalf("expected unsupported version, got %v", err)
	}

	_, _, err = runArgs(t, "", "--config", cfgPath, "--db", filepath.Join(tmp, "board.db"), "import")
	if err == nil {
		t.Fatal("expected missing --in error")
	}
}

func TestRunListRequiresIdentity(t *testing.T) {
	tmp := t.TempDir()
	_, _, err := runArgs(t, "", "--config", filepath.Join(tmp, "config.toml"), "--db", filepath.Join(tmp, "board.db"), "list")
	if !errors.Is(err, app.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated error, got %v", err)
	}
}

func TestRunHistoryRejectsBadLimit(t *testing.T) {
	tmp := t.TempDir()
	_, _, err := runArgs(t, "", "--config", filepath.Join(tmp, "config.toml"), "--db", filepath.Join(tmp, "board.db"), "history", "--limit", "0")
	if err == nil || !strings.Contains(err.Error(), "--limit") {
		t.Fatalf("expected limit error, got %v", err)
	}
}

func TestRunInvalidConfigFails(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.toml")
	writeConfig(t, cfgPath, "[board]\ndefault_lane = \"later\"\n[[board.lanes]]\nid = \"now\"\nname = \"Now\"\n")
	_, _, err := runArgs(t, "", "--config", cfgPath, "--db", filepath.Join(tmp, "board.db"), "list")
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestStartWatcherRejectsUnusableConfigDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	watcher, err := startWatcher(filepath.Join(blocker, "config.toml"), config.Default(""))
	if err == nil || watcher != nil {
		t.Fatalf("expected start failure, got %v, %v", watcher, err)
	}
}

func TestBridgeSettings(t *testing.T) {
	updates := make(chan config.Update, 2)
	logger, err := newRuntimeLogger(io.Discard, "lanes", false, config.LoggingConfig{Level: "info"}, nil)
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}
	out := bridgeSettings(updates, domain.DefaultLaneSet().IDs(), logger)

	cfg := config.Default("board.db")
	cfg.Confirm.Delete = false
	cfg.Board.Lanes[0].Name = "Backlog"
	updates <- config.Update{Err: errors.New("bad toml")}
	updates <- config.Update{Config: cfg}

	select {
	case got := <-out:
		if got.ConfirmDelete || got.LaneNames[domain.LaneTodo] != "Backlog" {
			t.Fatalf("unexpected settings %#v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for settings")
	}

	close(updates)
	select {
	case _, ok := <-out:
		if ok {
			t.Fatal("expected no settings for the rejected update")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected settings channel to close")
	}
}

func TestOfferLatestKeepsNewest(t *testing.T) {
	ch := make(chan tui.Settings, 1)
	offerLatest(ch, tui.Settings{ConfirmDelete: true})
	offerLatest(ch, tui.Settings{ConfirmDelete: false})
	if got := <-ch; got.ConfirmDelete {
		t.Fatal("expected the newer settings to replace the unread ones")
	}
}

func TestRuntimeLoggerDevFile(t *testing.T) {
	dir := t.TempDir()
	now := func() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) }
	var console strings.Builder
	logger, err := newRuntimeLogger(&console, "lanes dev", true, config.LoggingConfig{
		Level:   "debug",
		DevFile: config.DevFileLogConfig{Enabled: true, Dir: dir},
	}, now)
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}
	want := filepath.Join(dir, "lanes-dev-20260304.log")
	if logger.DevLogPath() != want {
		t.Fatalf("unexpected dev log path %q", logger.DevLogPath())
	}

	logger.SetConsoleEnabled(false)
	logger.Info("board changed", "op", "create")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	logger.Warn("after close")

	if console.Len() != 0 {
		t.Fatalf("expected muted console, got %q", console.String())
	}
	content, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), "board changed") || !strings.Contains(string(content), "op=create") {
		t.Fatalf("expected logfmt entry, got %q", content)
	}
	if strings.Contains(string(content), "after close") {
		t.Fatal("expected no writes after close")
	}
}

func TestRuntimeLoggerRejectsBadLevel(t *testing.T) {
	if _, err := newRuntimeLogger(io.Discard, "lanes", false, config.LoggingConfig{Level: "loud"}, nil); err == nil {
		t.Fatal("expected level parse error")
	}
}

func TestLogFileStem(t *testing.T) {
	cases := map[string]string{
		"lanes":      "lanes",
		" a/b:c ":    "a-b-c",
		"---":        "lanes",
		"":           "lanes",
		"lanes dev ": "lanes-dev",
	}
	for in, want := range cases {
		if got := logFileStem(in); got != want {
			t.Fatalf("logFileStem(%q) = %q, want %q", in, got, want)
		}
	}
}
