package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shizukutanaka/hashseek/internal/digest"
)

var algorithmsCmd = &cobra.Command{
	Use:   "algorithms",
	Short: "List registered digest algorithms",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range digest.List() {
			alg, err := digest.Get(name)
			if err != nil {
				continue
			}
			fmt.Printf("%-12s %3d bytes\n", alg.Name, alg.Size)
		}
	},
}

func init() {
	rootCmd.AddCommand(algorithmsCmd)
}
