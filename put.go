package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/olegram/selectel-cloud-storage/internal/config"
	"github.com/olegram/selectel-cloud-storage/internal/storage"
)

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <local-path> <container>[/prefix]",
		Short: "Upload a file or directory",
		Long: `Upload a local file or directory tree to a container.

Directories are uploaded in parallel; files larger than the configured
segment size are uploaded in segments and published via a manifest object.`,
		Args: cobra.ExactArgs(2),
		RunE: runPut,
	}
}

// splitContainerPrefix splits "container/some/prefix" into its container
// and prefix parts. The prefix keeps a trailing slash so it composes with
// object names.
func splitContainerPrefix(arg string) (container, prefix string) {
	container, prefix, found := strings.Cut(strings.Trim(arg, "/"), "/")
	if found && prefix != "" {
		prefix += "/"
	}

	return container, prefix
}

func runPut(cmd *cobra.Command, args []string) error {
	localPath := args[0]
	container, prefix := splitContainerPrefix(args[1])

	fi, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("stating local path: %w", err)
	}

	client, closeCache, logger, err := buildClient()
	if err != nil {
		return err
	}
	defer closeCache()

	ctx := cmd.Context()

	segmentSize, err := config.ParseSize(resolvedCfg.Transfers.SegmentSize)
	if err != nil {
		return err
	}

	if segmentSize <= 0 {
		segmentSize = storage.DefaultSegmentSize
	}

	if fi.IsDir() {
		logger.Debug("put directory", "dir", localPath, "container", container, "prefix", prefix)

		count, err := client.UploadDir(ctx, container, localPath, storage.UploadDirOptions{
			Prefix:           prefix,
			Workers:          resolvedCfg.Transfers.ParallelUploads,
			SegmentThreshold: segmentSize,
		})
		if err != nil {
			return fmt.Errorf("uploading directory %q: %w", localPath, err)
		}

		statusf("Uploaded %d objects to %s\n", count, container)

		return nil
	}

	objectName := prefix + storage.NormalizeObjectName(filepath.Base(localPath))

	logger.Debug("put file",
		"local_path", localPath,
		"object", container+"/"+objectName,
		"size", fi.Size(),
	)

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening local file: %w", err)
	}
	defer f.Close()

	if fi.Size() > segmentSize {
		if err := client.UploadLarge(ctx, container, objectName, f, fi.Size(), segmentSize); err != nil {
			return err
		}
	} else if err := client.Upload(ctx, container, objectName, f, ""); err != nil {
		return err
	}

	statusf("Uploaded %s/%s (%s)\n", container, objectName, formatSize(fi.Size()))

	return nil
}
