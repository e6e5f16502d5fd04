package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ChristinaDay/updrift-sub001/internal/model"
	"github.com/ChristinaDay/updrift-sub001/internal/quota"
)

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search every configured provider once and print the results",
	Long: `Search every configured provider once and print the results.

Examples:
  updrift search "go developer" --location "Austin, TX"
  updrift search "site reliability" --remote --pages 2
  updrift search backend --exclude crypto,web3`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, _ := cmd.Flags().GetString("location")
		radius, _ := cmd.Flags().GetInt("radius")
		pages, _ := cmd.Flags().GetInt("pages")
		remote, _ := cmd.Flags().GetBool("remote")
		exclude, _ := cmd.Flags().GetStringSlice("exclude")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		resp := a.search.Search(cmd.Context(), model.JobSearchParams{
			Query:      strings.Join(args, " "),
			Location:   loc,
			Radius:     radius,
			NumPages:   pages,
			RemoteOnly: remote,
			Exclude:    exclude,
		}.Normalize())

		if resp.Message != "" {
			pterm.Warning.Println(resp.Message)
		}
		if resp.Status == model.StatusError {
			return fmt.Errorf("search failed")
		}
		pterm.Info.Println(searchSummary(resp))
		if len(resp.Data) == 0 {
			return nil
		}
		return pterm.DefaultTable.WithHasHeader().WithData(jobRows(resp.Data, time.Now())).Render()
	},
}

// --- quota ---

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show monthly provider quotas from a running server",
	Long: `Show monthly provider quotas from a running server.

Quota counters live in the serving process, so this command asks it.

Examples:
  updrift quota
  updrift quota --server http://search.internal:8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, _ := cmd.Flags().GetString("server")
		if server == "" {
			server = defaultServer()
		}

		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, strings.TrimRight(server, "/")+"/api/quota", nil)
		if err != nil {
			return err
		}
		resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
		if err != nil {
			return fmt.Errorf("request quota: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned %d", resp.StatusCode)
		}

		var body struct {
			Quotas []quota.MonthlyQuota `json:"quotas"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("decode quota: %w", err)
		}
		if len(body.Quotas) == 0 {
			pterm.Info.Println("No quotas tracked.")
			return nil
		}
		return pterm.DefaultTable.WithHasHeader().WithData(quotaRows(body.Quotas)).Render()
	},
}

func defaultServer() string {
	if s := os.Getenv("UPDRIFT_SERVER"); s != "" {
		return s
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return "http://localhost:" + port
}

// --- suggest ---

var suggestCmd = &cobra.Command{
	Use:   "suggest <text>",
	Short: "Suggest locations matching partial text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		found, err := a.locations.Suggest(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return fmt.Errorf("suggest: %w", err)
		}
		if len(found) == 0 {
			pterm.Info.Println("No matching locations.")
			return nil
		}
		return pterm.DefaultTable.WithHasHeader().WithData(suggestionRows(found)).Render()
	},
}

func init() {
	searchCmd.Flags().StringP("location", "l", "", "city, state or \"remote\"")
	searchCmd.Flags().IntP("radius", "r", model.DefaultRadius, "search radius in miles")
	searchCmd.Flags().IntP("pages", "p", model.DefaultNumPages, "number of pages to request from each provider")
	searchCmd.Flags().Bool("remote", false, "only remote jobs")
	searchCmd.Flags().StringSlice("exclude", nil, "drop jobs mentioning any of these terms")

	quotaCmd.Flags().String("server", "", "base URL of a running updrift server (default $UPDRIFT_SERVER or localhost:$PORT)")

	suggestCmd.Flags().Int("limit", 5, "maximum suggestions")
}
