package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/weightgate/weightgate/cmd/serve"
)

const Version = "0.1.0"

var (
	RootCmd = &cobra.Command{
		Use:   "weightgate",
		Short: "Thompson Sampling weight optimizer",
		Long: fmt.Sprintf(`weightgate (v%s)

A companion service that continuously reweights feature-flag experiment
variants toward whichever one is converting best, using Thompson Sampling
over Beta posteriors of exposure/conversion counts.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of weightgate",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("weightgate v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It is called by main.main and only needs to happen once.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
