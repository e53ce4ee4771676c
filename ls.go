package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/olegram/selectel-cloud-storage/internal/storage"
)

func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [container]",
		Short: "List containers, or objects within a container",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}

	cmd.Flags().String("prefix", "", "only list objects with this name prefix")
	cmd.Flags().Int("limit", 0, "maximum number of entries to return")

	return cmd
}

func runLs(cmd *cobra.Command, args []string) error {
	client, closeCache, logger, err := buildClient()
	if err != nil {
		return err
	}
	defer closeCache()

	ctx := cmd.Context()

	if len(args) == 0 {
		logger.Debug("ls containers")

		containers, err := client.Containers(ctx)
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(containers)
		}

		printContainersTable(containers)

		return nil
	}

	container := args[0]

	prefix, err := cmd.Flags().GetString("prefix")
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	logger.Debug("ls objects", "container", container, "prefix", prefix)

	objects, err := client.Objects(ctx, container, storage.ListOptions{
		Prefix: prefix,
		Limit:  limit,
	})
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(objects)
	}

	printObjectsTable(objects)

	return nil
}

// printJSON writes any value as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func printContainersTable(containers []storage.Container) {
	sort.Slice(containers, func(i, j int) bool {
		return containers[i].Name < containers[j].Name
	})

	headers := []string{"NAME", "OBJECTS", "SIZE", "TYPE"}
	rows := make([][]string, 0, len(containers))

	for _, c := range containers {
		rows = append(rows, []string{
			c.Name,
			fmt.Sprintf("%d", c.Count),
			formatSize(c.Bytes),
			c.Type,
		})
	}

	printTable(os.Stdout, headers, rows)
}

func printObjectsTable(objects []storage.Object) {
	headers := []string{"NAME", "SIZE", "MODIFIED"}
	rows := make([][]string, 0, len(objects))

	for _, o := range objects {
		if o.Subdir != "" {
			rows = append(rows, []string{o.Subdir, "-", "-"})
			continue
		}

		rows = append(rows, []string{o.Name, formatSize(o.Bytes), formatTime(o.ModTime())})
	}

	printTable(os.Stdout, headers, rows)
}
