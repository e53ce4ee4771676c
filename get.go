package main

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <container> <object> [local-path]",
		Short: "Download an object",
		Args:  cobra.RangeArgs(2, 3),
		RunE:  runGet,
	}
}

func runGet(cmd *cobra.Command, args []string) error {
	container, object := args[0], args[1]

	localPath := path.Base(object)
	if len(args) > 2 {
		localPath = args[2]
	}

	client, closeCache, logger, err := buildClient()
	if err != nil {
		return err
	}
	defer closeCache()

	ctx := cmd.Context()

	logger.Debug("get", "object", container+"/"+object, "local_path", localPath)

	body, info, err := client.Download(ctx, container, object)
	if err != nil {
		return err
	}
	defer body.Close()

	// Download to a partial file, then rename, so an interrupted transfer
	// never leaves a truncated file at the final path.
	partialPath := localPath + ".partial"

	f, err := os.Create(partialPath)
	if err != nil {
		return fmt.Errorf("creating %q: %w", partialPath, err)
	}

	written, copyErr := io.Copy(f, body)
	closeErr := f.Close()

	if copyErr != nil {
		os.Remove(partialPath)
		return fmt.Errorf("downloading %s/%s: %w", container, object, copyErr)
	}

	if closeErr != nil {
		os.Remove(partialPath)
		return fmt.Errorf("writing %q: %w", partialPath, closeErr)
	}

	if info.Size >= 0 && written != info.Size {
		os.Remove(partialPath)
		return fmt.Errorf("short download of %s/%s: got %d of %d bytes", container, object, written, info.Size)
	}

	if err := os.Rename(partialPath, localPath); err != nil {
		return fmt.Errorf("renaming download to %q: %w", localPath, err)
	}

	logger.Debug("download complete", "local_path", localPath, "bytes", written)
	statusf("Downloaded %s (%s)\n", localPath, formatSize(written))

	return nil
}
