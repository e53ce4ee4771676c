package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <container> <object>",
		Short: "Delete an object",
		Args:  cobra.ExactArgs(2),
		RunE:  runRm,
	}
}

// rmJSONOutput is the JSON output schema for the rm command.
type rmJSONOutput struct {
	Deleted string `json:"deleted"`
}

func runRm(cmd *cobra.Command, args []string) error {
	container, object := args[0], args[1]

	client, closeCache, logger, err := buildClient()
	if err != nil {
		return err
	}
	defer closeCache()

	logger.Debug("rm", "object", container+"/"+object)

	if err := client.DeleteObject(cmd.Context(), container, object); err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(rmJSONOutput{Deleted: container + "/" + object})
	}

	statusf("Deleted %s/%s\n", container, object)

	return nil
}
