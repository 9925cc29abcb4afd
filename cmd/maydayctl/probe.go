package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/user/mayday/pkg/probe"
)

func init() {
	rootCmd.AddCommand(probeCmd)
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Show the detected submission capabilities",
	Run: func(cmd *cobra.Command, args []string) {
		env := probe.Detect()

		fmt.Printf("Credentialed client: %v\n", probe.SupportsCredentialed(env))
		if probe.HasLegacyGateway(env) {
			fmt.Printf("Legacy gateway:      %s\n", env.GatewayURL)
		} else {
			fmt.Println("Legacy gateway:      none")
		}
		fmt.Printf("Selected transport:  %s\n", probe.Resolve(env))
	},
}
