package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipvault/internal/api"
	"clipvault/internal/config"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Admit local clips through the upload checks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *api.Runtime) error {
				out := cmd.OutOrStdout()
				ids := make([]api.IDResponse, 0, len(args))
				for _, arg := range args {
					path, err := config.ExpandPath(arg)
					if err != nil {
						return err
					}
					id, err := rt.Service.IngestFile(cmd.Context(), path)
					if err != nil {
						return fmt.Errorf("ingest %s: %w", arg, err)
					}
					ids = append(ids, api.IDResponse{ID: id})
					if !ctx.jsonOutput() {
						fmt.Fprintf(out, "%s -> %s\n", arg, id)
					}
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, ids)
				}
				return nil
			})
		},
	}
}
