package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/user/mayday"
	"github.com/user/mayday/pkg/probe"
	"github.com/user/mayday/pkg/statuspage"
	"github.com/user/mayday/pkg/submitter"
)

var (
	legacyGateway string
	submitTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringVar(&legacyGateway, "legacy-gateway", "", "force submission through a legacy relay URL")
	submitCmd.Flags().DurationVar(&submitTimeout, "timeout", 60*time.Second, "how long to wait for an outcome")
}

// terminalRenderer forwards outcomes to the console and signals once a
// terminal one arrives.
type terminalRenderer struct {
	console statuspage.Console
	done    chan mayday.Outcome
}

func (r *terminalRenderer) Render(o mayday.Outcome) {
	r.console.Render(o)
	if o.Kind != mayday.OutcomePending {
		select {
		case r.done <- o:
		default:
		}
	}
}

var submitCmd = &cobra.Command{
	Use:   "submit [archive.tar.gz]",
	Short: "Submit a crash archive to the collector",
	Long:  `Submits a packed crash archive. Pass - to read the archive from stdin.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		payload, err := readArchive(args[0])
		if err != nil {
			fmt.Printf("Error reading archive: %v\n", err)
			os.Exit(1)
		}

		env := probe.Detect()
		if legacyGateway != "" {
			env = probe.Environment{GatewayURL: legacyGateway}
		}

		renderer := &terminalRenderer{
			console: statuspage.Console{Out: os.Stdout},
			done:    make(chan mayday.Outcome, 1),
		}

		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()

		submitter.New(env, renderer).Submit(ctx, submitURL(), payload)

		select {
		case o := <-renderer.done:
			if o.Kind == mayday.OutcomeFailure {
				os.Exit(1)
			}
		case <-ctx.Done():
			fmt.Println("Timed out waiting for the collector")
			os.Exit(1)
		}
	},
}

func submitURL() string {
	return strings.TrimRight(viper.GetString("url"), "/") + "/"
}

func readArchive(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
