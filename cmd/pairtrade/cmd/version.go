package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pairtrade version %s\n", version)
		fmt.Println("A pairs-trading backtest and paper-trading simulator")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
