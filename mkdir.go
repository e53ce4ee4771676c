package main

import (
	"github.com/spf13/cobra"

	"github.com/olegram/selectel-cloud-storage/internal/storage"
)

func newMkdirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkdir <container>",
		Short: "Create a container",
		Args:  cobra.ExactArgs(1),
		RunE:  runMkdir,
	}

	cmd.Flags().Bool("public", false, "make the container publicly readable")

	return cmd
}

func newRmdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rmdir <container>",
		Short: "Delete an empty container",
		Args:  cobra.ExactArgs(1),
		RunE:  runRmdir,
	}
}

func runMkdir(cmd *cobra.Command, args []string) error {
	name := args[0]

	client, closeCache, logger, err := buildClient()
	if err != nil {
		return err
	}
	defer closeCache()

	public, err := cmd.Flags().GetBool("public")
	if err != nil {
		return err
	}

	containerType := storage.ContainerPrivate
	if public {
		containerType = storage.ContainerPublic
	}

	logger.Debug("mkdir", "container", name, "type", containerType)

	if err := client.CreateContainer(cmd.Context(), name, containerType); err != nil {
		return err
	}

	statusf("Created container %s\n", name)

	return nil
}

func runRmdir(cmd *cobra.Command, args []string) error {
	name := args[0]

	client, closeCache, logger, err := buildClient()
	if err != nil {
		return err
	}
	defer closeCache()

	logger.Debug("rmdir", "container", name)

	if err := client.DeleteContainer(cmd.Context(), name); err != nil {
		return err
	}

	statusf("Deleted container %s\n", name)

	return nil
}
