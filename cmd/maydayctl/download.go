package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/mayday/pkg/download"
)

var downloadDir string

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().StringVar(&downloadDir, "dir", ".", "directory to save into")
}

var downloadCmd = &cobra.Command{
	Use:   "download [data-url]",
	Short: "Save a data: URL as a stamped crash archive",
	Long: `Decodes a data: URL and saves it as Crash-<timestamp>.tar.gz. The
argument may be the URL itself, a file containing it, or - for stdin.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw := args[0]
		switch {
		case raw == "-":
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				fmt.Printf("Error reading stdin: %v\n", err)
				os.Exit(1)
			}
			raw = string(data)
		case !strings.HasPrefix(raw, "data:"):
			data, err := os.ReadFile(raw)
			if err != nil {
				fmt.Printf("Error reading %s: %v\n", args[0], err)
				os.Exit(1)
			}
			raw = string(data)
		}

		d, err := download.New(downloadDir)
		if err != nil {
			fmt.Printf("Error preparing download directory: %v\n", err)
			os.Exit(1)
		}

		path, err := d.Save(strings.TrimSpace(raw))
		if err != nil {
			fmt.Printf("Error saving archive: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Saved", path)
	},
}
