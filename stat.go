package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/olegram/selectel-cloud-storage/internal/storage"
)

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <container> [object]",
		Short: "Display container or object metadata",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runStat,
	}
}

// statContainerJSON is the JSON output schema for container stat.
type statContainerJSON struct {
	Name      string `json:"name"`
	Objects   int64  `json:"objects"`
	BytesUsed int64  `json:"bytes_used"`
	Type      string `json:"type,omitempty"`
}

// statObjectJSON is the JSON output schema for object stat.
type statObjectJSON struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ETag         string `json:"etag"`
	ContentType  string `json:"content_type"`
	LastModified string `json:"last_modified"`
}

func runStat(cmd *cobra.Command, args []string) error {
	client, closeCache, logger, err := buildClient()
	if err != nil {
		return err
	}
	defer closeCache()

	ctx := cmd.Context()

	if len(args) == 1 {
		container := args[0]
		logger.Debug("stat container", "container", container)

		info, err := client.ContainerInfo(ctx, container)
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(statContainerJSON{
				Name:      container,
				Objects:   info.ObjectCount,
				BytesUsed: info.BytesUsed,
				Type:      info.Type,
			})
		}

		printContainerStat(container, info)

		return nil
	}

	container, object := args[0], args[1]
	logger.Debug("stat object", "object", container+"/"+object)

	info, err := client.StatObject(ctx, container, object)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(statObjectJSON{
			Name:         object,
			Size:         info.Size,
			ETag:         info.ETag,
			ContentType:  info.ContentType,
			LastModified: info.LastModified.Format("2006-01-02T15:04:05Z"),
		})
	}

	printObjectStat(object, info)

	return nil
}

func printContainerStat(name string, info *storage.ContainerInfo) {
	fmt.Printf("Container: %s\n", name)
	fmt.Printf("Objects:   %d\n", info.ObjectCount)
	fmt.Printf("Used:      %s (%d bytes)\n", formatSize(info.BytesUsed), info.BytesUsed)

	if info.Type != "" {
		fmt.Printf("Type:      %s\n", info.Type)
	}
}

func printObjectStat(name string, info *storage.ObjectInfo) {
	fmt.Printf("Object:   %s\n", name)
	fmt.Printf("Size:     %s (%d bytes)\n", formatSize(info.Size), info.Size)
	fmt.Printf("ETag:     %s\n", info.ETag)
	fmt.Printf("MIME:     %s\n", info.ContentType)

	if !info.LastModified.IsZero() {
		fmt.Printf("Modified: %s\n", info.LastModified.Format("2006-01-02 15:04:05 UTC"))
	}
}
