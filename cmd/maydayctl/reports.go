package main

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	reportsCategory string
	reportsSearch   string
	reportsLimit    int
	reportsPage     int
)

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsShowCmd)
	reportsCmd.AddCommand(reportsDeleteCmd)
	reportsCmd.AddCommand(reportsDownloadCmd)
	reportsCmd.Flags().StringVar(&reportsCategory, "category", "", "filter by category")
	reportsCmd.Flags().StringVar(&reportsSearch, "search", "", "search in id, category and exception fields")
	reportsCmd.Flags().IntVar(&reportsLimit, "limit", 20, "page size")
	reportsCmd.Flags().IntVar(&reportsPage, "page", 1, "page number")
}

func apiClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List crash reports stored on the collector",
	Run: func(cmd *cobra.Command, args []string) {
		u := fmt.Sprintf("%s/api/reports?limit=%d&page=%d&category=%s&search=%s",
			viper.GetString("url"), reportsLimit, reportsPage,
			url.QueryEscape(reportsCategory), url.QueryEscape(reportsSearch))

		resp, err := apiClient().Get(u)
		if err != nil {
			fmt.Printf("Error connecting to collector: %v\n", err)
			return
		}
		defer resp.Body.Close()

		var page struct {
			Reports []struct {
				ID         string    `json:"id"`
				Category   string    `json:"category"`
				Version    string    `json:"version"`
				ExcType    string    `json:"exc_type"`
				ExcValue   string    `json:"exc_value"`
				ReceivedAt time.Time `json:"received_at"`
			} `json:"reports"`
			Total int `json:"total"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			fmt.Printf("Error parsing response: %v\n", err)
			return
		}

		fmt.Printf("%-36s  %-10s  %-10s  %-20s  %s\n", "ID", "CATEGORY", "VERSION", "RECEIVED", "EXCEPTION")
		for _, r := range page.Reports {
			exc := r.ExcType
			if r.ExcValue != "" {
				if exc != "" {
					exc += ": "
				}
				exc += r.ExcValue
			}
			if len(exc) > 60 {
				exc = exc[:57] + "..."
			}
			fmt.Printf("%-36s  %-10s  %-10s  %-20s  %s\n",
				r.ID, r.Category, r.Version, r.ReceivedAt.Format("2006-01-02 15:04:05"), exc)
		}
		fmt.Printf("\n%d of %d reports\n", len(page.Reports), page.Total)
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one crash report as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := apiClient().Get(fmt.Sprintf("%s/api/reports/%s", viper.GetString("url"), args[0]))
		if err != nil {
			fmt.Printf("Error connecting to collector: %v\n", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			fmt.Printf("Collector returned %d: %s\n", resp.StatusCode, body)
			return
		}

		var rep map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
			fmt.Printf("Error parsing response: %v\n", err)
			return
		}
		out, _ := json.MarshalIndent(rep, "", "  ")
		fmt.Println(string(out))
	},
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a crash report",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		req, _ := http.NewRequest(http.MethodDelete,
			fmt.Sprintf("%s/api/reports/%s", viper.GetString("url"), args[0]), nil)
		resp, err := apiClient().Do(req)
		if err != nil {
			fmt.Printf("Error connecting to collector: %v\n", err)
			return
		}
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusNoContent:
			fmt.Println("Deleted", args[0])
		case http.StatusNotFound:
			fmt.Println("No such report:", args[0])
		default:
			fmt.Printf("Collector returned %d\n", resp.StatusCode)
		}
	},
}

var reportsDownloadCmd = &cobra.Command{
	Use:   "download [id]",
	Short: "Download a crash archive",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := apiClient().Get(fmt.Sprintf("%s/api/reports/%s/download", viper.GetString("url"), args[0]))
		if err != nil {
			fmt.Printf("Error connecting to collector: %v\n", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			fmt.Printf("Collector returned %d: %s\n", resp.StatusCode, body)
			return
		}

		name := args[0] + ".tar.gz"
		if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
			if fn := params["filename"]; fn != "" {
				name = fn
			}
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			fmt.Printf("Error reading archive: %v\n", err)
			return
		}
		if err := os.WriteFile(name, data, 0644); err != nil {
			fmt.Printf("Error writing %s: %v\n", name, err)
			return
		}
		fmt.Printf("Saved %s (%d bytes)\n", name, len(data))
	},
}
