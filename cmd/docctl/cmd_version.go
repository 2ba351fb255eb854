package main

import (
	"fmt"
	"strings"

	"docctl-server/internal/version"

	"github.com/spf13/cobra"
)

// versionCmd exposes the revision ordering rules for checking data by hand
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Inspect form revision labels",
}

var versionLatestCmd = &cobra.Command{
	Use:   "latest <version>...",
	Short: "Print the latest of the given revision labels",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runVersionLatest,
}

var versionNextCmd = &cobra.Command{
	Use:   "next <version>",
	Short: "Print the next major and minor revision after a label",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersionNext,
}

func init() {
	versionCmd.AddCommand(versionLatestCmd, versionNextCmd)
}

func runVersionLatest(cmd *cobra.Command, args []string) error {
	latest, _ := version.Resolve(args)
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, latest)
	if bad := version.Malformed(args); len(bad) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "malformed: %s\n", strings.Join(bad, ", "))
	}
	return nil
}

func runVersionNext(cmd *cobra.Command, args []string) error {
	major, minor, err := version.NextVersions(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "major: %s\nminor: %s\n", major, minor)
	return nil
}
