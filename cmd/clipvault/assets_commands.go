package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipvault/internal/api"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	assetsCmd := &cobra.Command{
		Use:   "assets",
		Short: "Inspect and manage stored clips",
	}
	assetsCmd.AddCommand(newAssetsListCommand(ctx))
	assetsCmd.AddCommand(newAssetsShowCommand(ctx))
	assetsCmd.AddCommand(newAssetsRemoveCommand(ctx))
	return assetsCmd
}

func newAssetsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored clips, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *api.Runtime) error {
				items, err := rt.Service.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.AssetListResponse{Items: items})
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No clips stored")
					return nil
				}
				fmt.Fprintln(out, renderAssetTable(items, shouldColorize(out)))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of clips to list (0 for all)")
	return cmd
}

func newAssetsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *api.Runtime) error {
				asset, err := rt.Service.Describe(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asset == nil {
					return fmt.Errorf("clip %s not found", args[0])
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, asset)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:       %s\n", asset.ID)
				fmt.Fprintf(out, "Filename: %s\n", asset.Filename)
				fmt.Fprintf(out, "Origin:   %s\n", asset.Origin)
				fmt.Fprintf(out, "Duration: %s\n", formatSeconds(asset.DurationSeconds))
				fmt.Fprintf(out, "Size:     %s\n", formatBytes(asset.SizeBytes))
				fmt.Fprintf(out, "Created:  %s\n", asset.CreatedAt)
				return nil
			})
		},
	}
}

func newAssetsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a clip record and its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *api.Runtime) error {
				removed, err := rt.Service.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("clip %s not found", args[0])
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.IDResponse{ID: args[0]})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed clip %s\n", args[0])
				return nil
			})
		},
	}
}

func renderAssetTable(items []api.Asset, colorize bool) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			item.Filename,
			item.Origin,
			formatSeconds(item.DurationSeconds),
			formatBytes(item.SizeBytes),
			item.CreatedAt,
		})
	}
	return renderTable(
		[]string{"ID", "Filename", "Origin", "Duration", "Size", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		colorize,
	)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "s"
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
