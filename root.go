package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/olegram/selectel-cloud-storage/internal/config"
	"github.com/olegram/selectel-cloud-storage/internal/storage"
	"github.com/olegram/selectel-cloud-storage/internal/urlcache"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagUser       string
	flagKey        string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
// It is available to all subcommands after the root pre-run phase completes.
var resolvedCfg *config.Config

// httpClientTimeout is the default timeout for HTTP requests.
// Prevents hung connections from blocking CLI commands indefinitely.
const httpClientTimeout = 30 * time.Second

// defaultHTTPClient returns an HTTP client with a sensible timeout.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "selcs",
		Short:   "Selectel Cloud Storage CLI client",
		Long:    "A CLI client for Selectel Cloud Storage (Swift v1 API).",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagUser, "user", "", "account username (overrides config)")
	cmd.PersistentFlags().StringVar(&flagKey, "key", "", "account key (overrides config)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	// Register subcommands.
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newAccountCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newRmdirCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newStatCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the override chain
// and stores the result in resolvedCfg for use by subcommands.
func loadConfig() error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
		User:       flagUser,
		Key:        flagKey,
	}

	env := config.ReadEnvOverrides()

	resolved, err := config.Resolve(env, cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if resolvedCfg != nil {
		switch resolvedCfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildClient assembles the storage client from the resolved config:
// credentials, the persistent endpoint cache, and a timeout-bounded HTTP
// transport. The returned closer releases the cache database and must be
// called when the command finishes; it is non-nil even when caching is
// disabled.
func buildClient() (*storage.Client, func(), *slog.Logger, error) {
	logger := buildLogger()

	if resolvedCfg.Auth.User == "" || resolvedCfg.Auth.Key == "" {
		return nil, nil, nil, fmt.Errorf(
			"no credentials configured: set auth.user/auth.key in the config file or %s/%s",
			config.EnvUser, config.EnvKey,
		)
	}

	cache, closeCache := openCache(logger)

	creds := storage.Credentials{
		User: resolvedCfg.Auth.User,
		Key:  resolvedCfg.Auth.Key,
	}

	var opts []storage.SessionOption
	if resolvedCfg.Auth.AuthURL != "" {
		opts = append(opts, storage.WithAuthURL(resolvedCfg.Auth.AuthURL))
	}

	session := storage.NewSession(creds, defaultHTTPClient(), cache, logger, opts...)
	client := storage.NewClient(session, defaultHTTPClient(), logger)

	return client, closeCache, logger, nil
}

// openCache opens the endpoint cache per the configured path. A cache that
// fails to open degrades to no caching — the session treats a nil cache as
// "always authenticate", which is correct, just slower.
func openCache(logger *slog.Logger) (storage.Cache, func()) {
	path := resolvedCfg.Cache.Path
	if path == "" {
		path = config.DefaultCachePath()
	}

	if path == "" || path == config.CacheDisabled {
		logger.Debug("endpoint cache disabled")
		return nil, func() {}
	}

	store, err := urlcache.Open(path, logger)
	if err != nil {
		logger.Warn("endpoint cache unavailable", "path", path, "error", err.Error())
		return nil, func() {}
	}

	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing endpoint cache", "error", err.Error())
		}
	}
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
