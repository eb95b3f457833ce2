package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashureev/dsa-drill/internal/api"
)

var healthAddr string

// healthcheckCmd probes a running bot's gRPC health service
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Probe the gRPC health service",
	Long: `Connect to a running drillbot's gRPC health service and exit
non-zero unless it reports SERVING. Suitable as a container HEALTHCHECK.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := api.Probe(cmd.Context(), api.DefaultProbeConfig(healthAddr)); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "SERVING")
		return nil
	},
}

func init() {
	healthcheckCmd.Flags().StringVar(&healthAddr, "addr", "localhost:9090", "host:port of the gRPC health service")
}
