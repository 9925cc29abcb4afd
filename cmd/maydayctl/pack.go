package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/user/mayday/pkg/archive"
	"github.com/user/mayday/pkg/report"
)

var (
	packOut      string
	packCategory string
	packVersion  string
)

func init() {
	rootCmd.AddCommand(packCmd)
	packCmd.Flags().StringVarP(&packOut, "out", "o", "", "output file (- for stdout)")
	packCmd.Flags().StringVar(&packCategory, "category", "cli", "report category when no info.json is given")
	packCmd.Flags().StringVar(&packVersion, "version", "dev", "application version when no info.json is given")
}

var packCmd = &cobra.Command{
	Use:   "pack [info.json] [attachments...]",
	Short: "Build a crash archive from an info document and attachments",
	Long: `Builds a .tar.gz crash archive. With no arguments a fresh info document
describing this host is generated; otherwise the first argument is the
info.json and the rest become attachment entries.`,
	Run: func(cmd *cobra.Command, args []string) {
		var info []byte
		var id string

		if len(args) == 0 {
			rep := report.New(packCategory, packVersion)
			data, err := rep.InfoJSON()
			if err != nil {
				fmt.Printf("Error building info document: %v\n", err)
				os.Exit(1)
			}
			info = data
			id = rep.ID
		} else {
			data, err := os.ReadFile(args[0])
			if err != nil {
				fmt.Printf("Error reading info document: %v\n", err)
				os.Exit(1)
			}
			rep, err := report.ParseInfo(data)
			if err != nil {
				fmt.Printf("Error: %s is not a crash info document: %v\n", args[0], err)
				os.Exit(1)
			}
			info = data
			id = rep.ID
		}

		files := make(map[string][]byte)
		for _, path := range args[1:] {
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Printf("Error reading attachment %s: %v\n", path, err)
				os.Exit(1)
			}
			files[filepath.Base(path)] = data
		}

		data, err := archive.Pack(info, files)
		if err != nil {
			fmt.Printf("Error packing archive: %v\n", err)
			os.Exit(1)
		}

		out := packOut
		if out == "" {
			if id == "" {
				id = "report"
			}
			out = fmt.Sprintf("crash-%s.tar.gz", id)
		}
		if out == "-" {
			if _, err := os.Stdout.Write(data); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing archive: %v\n", err)
				os.Exit(1)
			}
			return
		}

		if err := os.WriteFile(out, data, 0644); err != nil {
			fmt.Printf("Error writing archive: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Packed %d attachment(s) into %s (%d bytes, fingerprint %s)\n",
			len(files), out, len(data), archive.Fingerprint(data))
	},
}
