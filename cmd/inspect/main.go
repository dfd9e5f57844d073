// Command inspect previews what the server would do with a document: the
// placeholders it finds, the prompts it would use and the rendered result.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "inspect",
	Short:         "Inspect .docx templates offline",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(placeholdersCmd, renderCmd, promptsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func heading(format string, args ...interface{}) {
	color.New(color.FgCyan, color.Bold).Printf(format+"\n", args...)
}

func warn(format string, args ...interface{}) {
	color.Yellow(format, args...)
}

func ok(format string, args ...interface{}) {
	color.Green(format, args...)
}

func plain(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}
