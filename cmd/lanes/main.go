package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/hylla/lanes/internal/adapters/storage/sqlite"
	"github.com/hylla/lanes/internal/app"
	"github.com/hylla/lanes/internal/board"
	"github.com/hylla/lanes/internal/config"
	"github.com/hylla/lanes/internal/domain"
	"github.com/hylla/lanes/internal/platform"
	"github.com/hylla/lanes/internal/tui"
	"github.com/spf13/cobra"
)

// version is stamped at build time.
var version = "dev"

// program is the part of a tea.Program the board command drives.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the TUI program; tests swap it for a stub.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

func main() {
	root := newRootCommand()
	if err := fang.Execute(context.Background(), root, fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

// run executes the command tree without fang's styled output.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true
	return root.ExecuteContext(ctx)
}

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{
		appName: platform.DefaultAppName,
		devMode: version == "dev",
	}
	if envApp := strings.TrimSpace(os.Getenv("LANES_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}
	if envDev, ok := parseBoolEnv("LANES_DEV_MODE"); ok {
		opts.devMode = envDev
	}

	root := &cobra.Command{
		Use:   "lanes",
		Short: "A three-lane task board for the terminal",
		Long:  "lanes keeps tasks in To Do, Doing and Done lanes. Run it without a subcommand to open the board.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBoard(cmd.Context(), opts, cmd.InOrStdin(), cmd.ErrOrStderr())
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(opts),
		newListCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newHistoryCommand(opts),
	)
	return root
}

// runtimeEnv is everything a command needs after flags, env and config resolve.
type runtimeEnv struct {
	configPath   string
	dbPath       string
	dbOverridden bool
	defaults     config.Config
	cfg          config.Config
	logger       *runtimeLogger
}

// resolvePaths applies flags and environment overrides to the platform paths.
func (o *rootOptions) resolvePaths() (platform.Paths, string, string, bool, error) {
	paths, err := platform.Resolve(platform.Options{AppName: o.appName, DevMode: o.devMode})
	if err != nil {
		return platform.Paths{}, "", "", false, err
	}
	configPath := strings.TrimSpace(o.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("LANES_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(o.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("LANES_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}
	return paths, configPath, dbPath, dbOverridden, nil
}

// load resolves paths, reads the config file and opens the runtime logger.
func (o *rootOptions) load(stderr io.Writer, command string) (*runtimeEnv, error) {
	paths, configPath, dbPath, dbOverridden, err := o.resolvePaths()
	if err != nil {
		return nil, err
	}
	defaults := config.Default(dbPath)
	cfg, err := config.Load(configPath, defaults)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	logger, err := newRuntimeLogger(stderr, o.appName, o.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	logger.Info("startup configuration resolved", "app", o.appName, "dev_mode", o.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}
	return &runtimeEnv{
		configPath:   configPath,
		dbPath:       dbPath,
		dbOverridden: dbOverridden,
		defaults:     defaults,
		cfg:          cfg,
		logger:       logger,
	}, nil
}

// reload re-reads the config file, keeping a flag or env database override.
func (e *runtimeEnv) reload() error {
	cfg, err := config.Load(e.configPath, e.defaults)
	if err != nil {
		return fmt.Errorf("reload config %q: %w", e.configPath, err)
	}
	if e.dbOverridden {
		cfg.Database.Path = e.dbPath
	}
	e.cfg = cfg
	return nil
}

// close releases the logger, reporting failures only when the console is live.
func (e *runtimeEnv) close(stderr io.Writer) {
	if err := e.logger.Close(); err != nil && e.logger.consoleEnabled {
		_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// openRepository opens the configured sqlite database.
func (e *runtimeEnv) openRepository() (*sqlite.Repository, error) {
	e.logger.Info("opening sqlite repository", "db_path", e.cfg.Database.Path)
	repo, err := sqlite.Open(e.cfg.Database.Path)
	if err != nil {
		e.logger.Error("sqlite open failed", "db_path", e.cfg.Database.Path, "err", err)
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	return repo, nil
}

// closeRepository closes repo, logging failures.
func (e *runtimeEnv) closeRepository(repo *sqlite.Repository) {
	if err := repo.Close(); err != nil {
		e.logger.Warn("sqlite close failed", "db_path", e.cfg.Database.Path, "err", err)
	}
}

// newService builds a board service over the configured lanes.
func (e *runtimeEnv) newService(repo app.Repository, activity app.ActivityLog) (*app.Service, error) {
	lanes, err := e.cfg.LaneSet()
	if err != nil {
		return nil, fmt.Errorf("board lanes: %w", err)
	}
	svc, err := app.NewService(
		app.StaticIdentity{DisplayName: e.cfg.Identity.DisplayName},
		board.NewStore(lanes),
		app.ServiceConfig{
			Repository: repo,
			Activity:   activity,
			Logger:     e.logger,
		},
	)
	if errors.Is(err, app.ErrUnauthenticated) {
		return nil, fmt.Errorf("%w: set identity.display_name in %s or run lanes once to be prompted", err, e.configPath)
	}
	if err != nil {
		return nil, err
	}
	e.logger.Debug("application service initialized", "lanes", lanes.Len(), "persist", repo != nil)
	return svc, nil
}

// withStoredBoard opens the database, loads the stored board and runs fn.
func (o *rootOptions) withStoredBoard(cmd *cobra.Command, name string, fn func(*runtimeEnv, *app.Service, *sqlite.Repository) error) error {
	ctx := cmd.Context()
	stderr := cmd.ErrOrStderr()
	env, err := o.load(stderr, name)
	if err != nil {
		return err
	}
	defer env.close(stderr)

	repo, err := env.openRepository()
	if err != nil {
		return err
	}
	defer env.closeRepository(repo)

	svc, err := env.newService(repo, repo)
	if err != nil {
		return err
	}
	if err := svc.Load(ctx); err != nil {
		env.logger.Error("board load failed", "err", err)
		return fmt.Errorf("load board: %w", err)
	}

	env.logger.Info("command flow start", "command", name)
	if err := fn(env, svc, repo); err != nil {
		env.logger.Error("command flow failed", "command", name, "err", err)
		return err
	}
	env.logger.Info("command flow complete", "command", name)
	return nil
}

// runBoard runs the interactive board.
func runBoard(ctx context.Context, opts *rootOptions, stdin io.Reader, stderr io.Writer) error {
	env, err := opts.load(stderr, "board")
	if err != nil {
		return err
	}
	defer env.close(stderr)

	if strings.TrimSpace(env.cfg.Identity.DisplayName) == "" {
		if err := bootstrapIdentity(env.configPath, stdin, stderr); err != nil {
			return fmt.Errorf("startup bootstrap: %w", err)
		}
		if err := env.reload(); err != nil {
			return err
		}
		env.logger.Info("identity saved", "config_path", env.configPath)
	}
	// Keep TUI rendering clean: runtime logs stay in the dev-file sink while the board is active.
	env.logger.SetConsoleEnabled(false)

	var (
		repo     app.Repository
		activity app.ActivityLog
	)
	if env.cfg.Database.Persist {
		stored, err := env.openRepository()
		if err != nil {
			return err
		}
		defer env.closeRepository(stored)
		repo, activity = stored, stored
	} else {
		scratch, err := sqlite.OpenInMemory()
		if err != nil {
			return fmt.Errorf("open session activity log: %w", err)
		}
		defer env.closeRepository(scratch)
		activity = scratch
		env.logger.Info("board persistence disabled; tasks last for this session")
	}

	svc, err := env.newService(repo, activity)
	if err != nil {
		return err
	}
	if err := svc.Load(ctx); err != nil {
		env.logger.Error("board load failed", "err", err)
		return fmt.Errorf("load board: %w", err)
	}

	lanes, _ := env.cfg.LaneSet()
	options := []tui.Option{
		tui.WithContext(ctx),
		tui.WithDisplayName(env.cfg.Identity.DisplayName),
		tui.WithSettings(settingsFromConfig(env.cfg)),
	}
	if watcher, err := startWatcher(env.configPath, env.defaults); err != nil {
		env.logger.Warn("config watch unavailable", "config_path", env.configPath, "err", err)
	} else {
		defer watcher.Stop()
		options = append(options, tui.WithSettingsFeed(bridgeSettings(watcher.Updates, lanes.IDs(), env.logger)))
		env.logger.Info("watching config for changes", "config_path", env.configPath)
	}

	env.logger.Info("starting tui program loop")
	if _, err := programFactory(tui.NewModel(svc, options...)).Run(); err != nil {
		env.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	if err := svc.Flush(ctx); err != nil {
		env.logger.Error("final board save failed", "err", err)
		return err
	}
	env.logger.Info("command flow complete", "command", "board")
	return nil
}

// startWatcher creates and starts a config watcher. A watcher that fails to
// start has already released its handle.
func startWatcher(path string, defaults config.Config) (*config.Watcher, error) {
	watcher, err := config.NewWatcher(path, defaults)
	if err != nil {
		return nil, err
	}
	if err := watcher.Start(); err != nil {
		return nil, err
	}
	return watcher, nil
}

// settingsFromConfig maps the live-reloadable config values into TUI settings.
func settingsFromConfig(cfg config.Config) tui.Settings {
	return tui.Settings{
		ConfirmDelete: cfg.Confirm.Delete,
		LaneNames:     cfg.LaneNames(),
	}
}

// bridgeSettings turns config reloads into TUI settings. Invalid files are logged
// and skipped; lane id changes are reported but only names apply live. The
// returned channel closes after updates closes.
func bridgeSettings(updates <-chan config.Update, lanes []domain.LaneID, logger *runtimeLogger) <-chan tui.Settings {
	out := make(chan tui.Settings, 1)
	go func() {
		defer close(out)
		for update := range updates {
			if update.Err != nil {
				logger.Warn("config reload rejected", "err", update.Err)
				continue
			}
			if next, err := update.Config.LaneSet(); err == nil && !slices.Equal(next.IDs(), lanes) {
				logger.Warn("lane set changed; new lanes apply after restart")
			}
			logger.Info("config reloaded")
			offerLatest(out, settingsFromConfig(update.Config))
		}
	}()
	return out
}

// offerLatest sends v, replacing an unread older value so the sender never blocks.
func offerLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// parseBoolEnv reads a boolean environment variable.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
