package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Populated at build time via -ldflags. When absent (go install, test
// binaries) the module version from build info stands in.
var (
	RestoresentryVersion string
	RestoresentryCommit  string
	RestoresentryDate    string
)

func versionString() string {
	version := RestoresentryVersion
	if version == "" {
		version = "(devel)"
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
			version = info.Main.Version
		}
	}

	out := "RestoreSentry " + version
	if RestoresentryCommit != "" {
		out += fmt.Sprintf("\ncommit: %s", RestoresentryCommit)
	}
	if RestoresentryDate != "" {
		out += fmt.Sprintf("\nbuilt:  %s", RestoresentryDate)
	}
	return out
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionString())
	},
}

func init() {
	rootCommand.AddCommand(versionCommand)
}
