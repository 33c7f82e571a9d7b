package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/kodaira/appsetup/internal/config"
	"github.com/kodaira/appsetup/internal/confirm"
	"github.com/kodaira/appsetup/internal/envpaths"
	"github.com/kodaira/appsetup/internal/i18n"
	"github.com/kodaira/appsetup/internal/install"
	"github.com/kodaira/appsetup/internal/launcher"
	"github.com/kodaira/appsetup/internal/manifest"
	"github.com/kodaira/appsetup/internal/payload"
	"github.com/kodaira/appsetup/internal/shortcut"
	"github.com/kodaira/appsetup/internal/uninstall"
	"github.com/kodaira/appsetup/internal/winreg"
	"github.com/spf13/cobra"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
	locale    string

	// Install flags
	tasks       []string
	installRoot string
	noLaunch    bool
	dryRun      bool

	// Uninstall flags
	unattended bool
	purgeData  bool

	// Package flags
	archiveOut string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "appsetup",
	Short: "Install and uninstall a pre-built desktop application",
	Long: `appsetup installs a pre-built desktop application from a payload directory
according to a declarative manifest: it copies files, provisions directories,
registers shortcuts for the selected optional tasks and can launch the
application afterwards.

The uninstaller removes everything the installer created and asks, exactly
once, whether user data directories should be purged as well.`,
	SilenceUsage: true,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the application payload to the install root",
	Long: `Install provisions directories, copies every manifest file into the install
root, registers shortcuts whose task matches a selected task, writes the
platform uninstall entry and optionally launches the application.

Directory creation failures abort the install; file and shortcut failures
are collected in the result summary without stopping the run.`,
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the installed application",
	Long: `Uninstall removes installed shortcuts, files and directories in reverse
registration order, then asks whether user data directories should be purged
as well. Program files are removed regardless of that decision; the decision
scopes only user data.

Removing an already-uninstalled application succeeds: missing targets are
treated as removed.`,
	RunE: runUninstall,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the payload against the manifest",
	Long: `Verify checks that every file the manifest references exists in the payload
directory and reports per-file sizes and SHA-256 digests.`,
	RunE: runVerify,
}

var packageCmd = &cobra.Command{
	Use:   "package",
	Short: "Build a portable zip archive of the payload",
	RunE:  runPackage,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("appsetup %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./appsetup.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&locale, "locale", "", "message locale (overrides config)")

	// Install command flags
	installCmd.Flags().StringArrayVar(&tasks, "task", nil, "select an optional task (e.g. desktopicon); repeatable")
	installCmd.Flags().StringVar(&installRoot, "install-root", "", "override the resolved install root")
	installCmd.Flags().BoolVar(&noLaunch, "no-launch", false, "do not launch the application after install")
	installCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be done without making changes")

	// Uninstall command flags
	uninstallCmd.Flags().StringVar(&installRoot, "install-root", "", "override the resolved install root")
	uninstallCmd.Flags().BoolVar(&unattended, "unattended", false, "run without prompting; user data is preserved")
	uninstallCmd.Flags().BoolVar(&purgeData, "purge-data", false, "run without prompting; user data is purged")
	uninstallCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be done without making changes")
	uninstallCmd.MarkFlagsMutuallyExclusive("unattended", "purge-data")

	// Package command flags
	packageCmd.Flags().StringVar(&archiveOut, "out", "", "output archive path (default <product>_<version>_portable.zip)")

	// Add commands
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(packageCmd)
	rootCmd.AddCommand(versionCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	m, err := manifest.Load(cfg.ManifestPath())
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	roots, placement := resolvePaths(cfg)
	msgs := messages(cfg)
	if noLaunch {
		v := false
		cfg.Install.LaunchAfter = &v
	}

	selected := cfg.Install.DefaultTasks
	if len(tasks) > 0 {
		selected = tasks
	}

	engine := install.NewEngine(cfg, install.Collaborators{
		Shortcuts: shortcut.NewProvisioner(logger),
		Launcher:  launcher.NewExecLauncher(),
		Registrar: winreg.NewRegistrar(logger),
	}, placement, logger, dryRun)

	fmt.Println(msgs.Installing)
	res, err := engine.Install(ctx, m, roots.Install, selected)
	if err != nil {
		logger.Error("install aborted", "error", err)
		return err
	}

	if failed := res.Failed(); len(failed) > 0 {
		for _, f := range failed {
			logger.Warn("entry failed", "path", f.Path, "error", f.Err)
		}
		return fmt.Errorf("install completed with %d failed entries", len(failed))
	}

	fmt.Println(msgs.InstallComplete)
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	m, err := manifest.Load(cfg.ManifestPath())
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	roots, placement := resolvePaths(cfg)
	msgs := messages(cfg)

	driver := uninstall.NewDriver(cfg, uninstall.Collaborators{
		Shortcuts: shortcut.NewProvisioner(logger),
		Registrar: winreg.NewRegistrar(logger),
	}, placement, msgs, logger, dryRun)

	fmt.Println(msgs.Uninstalling)
	res, err := driver.Uninstall(ctx, m, roots.Install, m.ResolveDataDirs(roots.Data), chooseConfirmer())
	if err != nil {
		logger.Error("uninstall failed", "error", err)
		return err
	}

	fmt.Println(msgs.UninstallComplete)
	if res.Purged {
		fmt.Println(msgs.DataPurged)
	} else {
		fmt.Println(msgs.DataPreserved)
	}
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	m, err := manifest.Load(cfg.ManifestPath())
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	report, err := payload.Verify(ctx, cfg.Payload.Dir, m, logger)
	for _, f := range report.Files {
		logger.Info("verified", "source", f.Source, "size", f.Size, "sha256", f.SHA256)
	}
	for _, missing := range report.Missing {
		logger.Error("missing payload file", "source", missing)
	}
	if err != nil {
		return err
	}

	logger.Info("payload verified", "files", len(report.Files))
	return nil
}

func runPackage(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := archiveOut
	if out == "" {
		out = fmt.Sprintf("%s_%s_portable.zip", cfg.Product.Name, cfg.Product.Version)
	}

	count, err := payload.Archive(ctx, cfg.Payload.Dir, out)
	if err != nil {
		return fmt.Errorf("failed to build archive: %w", err)
	}

	logger.Info("portable archive created", "path", out, "files", count)
	return nil
}

// pathRoots bundles the resolved environment roots for the drivers
type pathRoots struct {
	Install string
	Data    manifest.DataRoots
}

// resolvePaths merges configured paths with platform conventions. The
// drivers only ever see the resolved absolute paths.
func resolvePaths(cfg *config.Config) (pathRoots, shortcut.Placement) {
	env := envpaths.Resolve(cfg.Product.Name)

	roots := pathRoots{
		Install: cfg.Paths.InstallRoot,
		Data: manifest.DataRoots{
			AppData:  cfg.Paths.AppDataRoot,
			UserDocs: cfg.Paths.UserDocsRoot,
		},
	}
	if installRoot != "" {
		roots.Install = installRoot
	}
	if roots.Install == "" {
		roots.Install = env.InstallRoot
	}
	if roots.Data.AppData == "" {
		roots.Data.AppData = env.AppDataRoot
	}
	if roots.Data.UserDocs == "" {
		roots.Data.UserDocs = env.UserDocsRoot
	}
	roots.Data.Install = roots.Install

	placement := shortcut.Placement{
		Desktop:   env.Desktop,
		StartMenu: env.StartMenu,
	}
	return roots, placement
}

// chooseConfirmer picks the purge-decision collaborator for this run
func chooseConfirmer() confirm.Confirmer {
	switch {
	case purgeData:
		return confirm.Auto{Answer: true}
	case unattended:
		return confirm.Auto{Answer: false}
	default:
		return confirm.NewStdio()
	}
}

func messages(cfg *config.Config) i18n.Messages {
	id := cfg.Locale
	if locale != "" {
		id = locale
	}
	msgs, err := i18n.Lookup(id)
	if err != nil {
		// Catalog is embedded; a load failure means a broken build.
		panic(err)
	}
	return msgs
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	// Determine config file path
	configPath := cfgFile
	if configPath == "" {
		configPath = filepath.Join(".", "appsetup.yaml")
	}

	logger.Info("loading configuration", "path", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		"product", cfg.Product.Name,
		"version", cfg.Product.Version,
		"payload_dir", cfg.Payload.Dir,
		"manifest", cfg.Payload.Manifest)

	return cfg, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
