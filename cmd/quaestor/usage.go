package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/quaestor/pkg/cli"
	"mercator-hq/quaestor/pkg/ledger"
	"mercator-hq/quaestor/pkg/ledger/storage"
)

var usageFlags struct {
	limit  int
	output string
	addr   string
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "List recent usage records",
	Long: `List recent usage records from the ledger, newest first.

Reads the usage ledger directly, so it works whether or not the proxy is
running. With --addr, a running proxy is asked over HTTP instead.

Examples:
  # Last 10 requests
  quaestor usage

  # Last 50 requests as CSV
  quaestor usage --limit 50 --output csv

  # Recent usage from a running proxy
  quaestor usage --addr 127.0.0.1:4000`,
	RunE: runUsage,
}

func init() {
	rootCmd.AddCommand(usageCmd)

	usageCmd.Flags().IntVarP(&usageFlags.limit, "limit", "n", 10, "maximum number of records")
	usageCmd.Flags().StringVarP(&usageFlags.output, "output", "o", "text", "output format (text, json, csv)")
	usageCmd.Flags().StringVar(&usageFlags.addr, "addr", "", "query a running proxy at this address instead of the ledger")
}

func runUsage(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(usageFlags.output)
	if err != nil {
		return err
	}
	if usageFlags.limit < 1 {
		return fmt.Errorf("limit must be a positive integer")
	}

	records, err := fetchUsage(usageFlags.limit)
	if err != nil {
		return err
	}

	switch format {
	case cli.FormatJSON:
		if records == nil {
			records = []*ledger.UsageRecord{}
		}
		return cli.NewFormatter(format).FormatTo(os.Stdout, records)
	case cli.FormatText:
		if len(records) == 0 {
			fmt.Println("No usage history found.")
			return nil
		}
	}

	return cli.NewFormatter(format).FormatTo(os.Stdout, usageTable(records))
}

// fetchUsage reads recent usage from a running proxy or, by default,
// straight from the ledger database.
func fetchUsage(limit int) ([]*ledger.UsageRecord, error) {
	if usageFlags.addr != "" {
		return fetchUsageHTTP(usageFlags.addr, limit)
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(cfg.Storage.Path); os.IsNotExist(err) {
		return nil, nil
	}

	store, err := storage.OpenReadOnly(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.Storage.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open usage ledger: %w", err)
	}
	defer store.Close()

	led := ledger.New(store, ledgerConfigFrom(cfg), nil)
	return led.Recent(context.Background(), limit)
}

func fetchUsageHTTP(addr string, limit int) ([]*ledger.UsageRecord, error) {
	url := fmt.Sprintf("http://%s/v1/usage?limit=%d", addr, limit)
	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("proxy not reachable at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("proxy returned %s for %s", resp.Status, url)
	}

	var payload struct {
		Count   int                   `json:"count"`
		Records []*ledger.UsageRecord `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode usage records: %w", err)
	}
	return payload.Records, nil
}

// usageTable renders records for the text and CSV formatters.
func usageTable(records []*ledger.UsageRecord) *cli.Table {
	table := &cli.Table{
		Headers: []string{"TIME", "TIER", "MODEL", "TOKENS", "COST", "ROUTED BY", "QUERY"},
	}
	for _, rec := range records {
		preview := rec.QueryPreview
		if runes := []rune(preview); len(runes) > 50 {
			preview = string(runes[:50]) + "..."
		}
		table.Rows = append(table.Rows, []string{
			rec.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			string(rec.Tier),
			rec.Model,
			fmt.Sprintf("%d/%d", rec.InputTokens, rec.OutputTokens),
			fmt.Sprintf("€%.4f", rec.Cost.EUR()),
			rec.RoutedBy,
			preview,
		})
	}
	return table
}
