package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msto63/pascal/pkg/core/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Zeigt die Version an",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Printf("Pascal v%s\n", info.Version)
		fmt.Printf("  Evaluator:  %s\n", version.ComponentVersion("evaluator"))
		fmt.Printf("  Server:     %s (API %s)\n", version.ComponentVersion("server"), version.APIVersion)
		fmt.Printf("  Git Commit: %s\n", info.Commit)
		fmt.Printf("  Build Date: %s\n", info.BuildDate)
		fmt.Printf("  Go Version: %s\n", info.GoVersion)
		fmt.Printf("  OS/Arch:    %s\n", info.Platform)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
