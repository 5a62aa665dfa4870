package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipvault/internal/api"
)

func newLinkCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "link <id>",
		Short: "Issue a signed retrieval URL for a clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *api.Runtime) error {
				link, err := rt.Service.IssueLink(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, link)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, link.SignedURL)
				fmt.Fprintf(out, "Expires: %s\n", link.ExpiresAt)
				return nil
			})
		},
	}
}
