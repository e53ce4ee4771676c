package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/olegram/selectel-cloud-storage/internal/config"
	"github.com/olegram/selectel-cloud-storage/internal/storage"
	"github.com/olegram/selectel-cloud-storage/internal/urlcache"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Verify credentials and cache the storage endpoint",
		RunE:  runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the cached storage endpoint",
		RunE:  runLogout,
	}
}

func newAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Display account usage summary",
		RunE:  runAccount,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	client, closeCache, logger, err := buildClient()
	if err != nil {
		return err
	}
	defer closeCache()

	ctx := cmd.Context()

	logger.Info("login started", "user", resolvedCfg.Auth.User)

	if err := client.Session().Authenticate(ctx); err != nil {
		return err
	}

	url, err := client.Session().StorageURL(ctx)
	if err != nil {
		return err
	}

	logger.Info("login successful", "storage_url", url)
	statusf("Authenticated. Storage endpoint: %s\n", url)

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	path := resolvedCfg.Cache.Path
	if path == "" {
		path = config.DefaultCachePath()
	}

	if path == "" || path == config.CacheDisabled {
		statusf("No endpoint cache configured, nothing to forget.\n")
		return nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		statusf("Not logged in.\n")
		return nil
	}

	store, err := urlcache.Open(path, logger)
	if err != nil {
		return fmt.Errorf("opening endpoint cache: %w", err)
	}
	defer store.Close()

	if err := store.Delete(context.Background(), storage.CacheKeyStorageURL); err != nil {
		return fmt.Errorf("clearing endpoint cache: %w", err)
	}

	logger.Info("logout: cleared cached endpoint", "path", path)
	statusf("Forgot cached storage endpoint.\n")

	return nil
}

// accountJSONOutput is the JSON schema for `account --json`.
type accountJSONOutput struct {
	Containers int64 `json:"containers"`
	Objects    int64 `json:"objects"`
	BytesUsed  int64 `json:"bytes_used"`
}

func runAccount(cmd *cobra.Command, _ []string) error {
	client, closeCache, logger, err := buildClient()
	if err != nil {
		return err
	}
	defer closeCache()

	ctx := cmd.Context()

	logger.Debug("account info")

	info, err := client.AccountInfo(ctx)
	if err != nil {
		return fmt.Errorf("fetching account info: %w", err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(accountJSONOutput{
			Containers: info.ContainerCount,
			Objects:    info.ObjectCount,
			BytesUsed:  info.BytesUsed,
		})
	}

	fmt.Printf("Containers: %d\n", info.ContainerCount)
	fmt.Printf("Objects:    %d\n", info.ObjectCount)
	fmt.Printf("Used:       %s (%d bytes)\n", formatSize(info.BytesUsed), info.BytesUsed)

	logger.Debug("account info fetched",
		slog.Int64("containers", info.ContainerCount),
		slog.Int64("objects", info.ObjectCount),
	)

	return nil
}
