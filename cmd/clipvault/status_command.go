package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"clipvault/internal/api"
	"clipvault/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusError
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiBlue  = "\x1b[34m"
)

const statusLabelWidth = 20

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, storage, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			running, err := daemonRunning(cfg)
			if err != nil {
				return err
			}
			status := api.Status{
				DaemonRunning: running,
				DatabasePath:  cfg.DatabasePath(),
				LockFilePath:  cfg.LockPath(),
				StorageDir:    cfg.Paths.StorageDir,
				Checks:        api.FromChecks(preflight.RunAll(cmd.Context(), cfg)),
			}
			err = ctx.withRuntime(func(rt *api.Runtime) error {
				health, err := rt.Service.Health(cmd.Context())
				if err != nil {
					return err
				}
				status.Assets = health.Assets
				return nil
			})
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			printStatus(out, status, shouldColorize(out))
			return nil
		},
	}
}

func printStatus(out io.Writer, status api.Status, colorize bool) {
	daemonKind := statusInfo
	if status.DaemonRunning {
		daemonKind = statusOK
	}
	writeSection(out, "Runtime", colorize)
	fmt.Fprintln(out, renderStatusLine("Daemon running", daemonKind, yesNo(status.DaemonRunning), colorize))
	fmt.Fprintln(out, renderStatusLine("Assets", statusInfo, strconv.Itoa(status.Assets), colorize))
	fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
	fmt.Fprintln(out, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))
	fmt.Fprintln(out, renderStatusLine("Storage", statusInfo, status.StorageDir, colorize))

	fmt.Fprintln(out)
	writeSection(out, "Checks", colorize)
	for _, check := range status.Checks {
		kind := statusError
		if check.Passed {
			kind = statusOK
		}
		fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	tag := "INFO"
	color := ansiBlue
	switch kind {
	case statusOK:
		tag, color = "OK", ansiGreen
	case statusError:
		tag, color = "ERROR", ansiRed
	}
	line := fmt.Sprintf("  %-*s [%s]", statusLabelWidth, label+":", tag)
	if message != "" {
		line += " " + message
	}
	if colorize {
		return color + line + ansiReset
	}
	return line
}

func writeSection(out io.Writer, title string, colorize bool) {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	fmt.Fprintln(out, line)
	fmt.Fprintln(out, rule)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
