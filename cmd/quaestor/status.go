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

var statusFlags struct {
	output string
	addr   string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current budget status",
	Long: `Show daily and monthly budget status with spending bars.

Reads the usage ledger directly, so it works whether or not the proxy is
running. With --addr, a running proxy is asked over HTTP instead.

Examples:
  # Budget status from the ledger
  quaestor status

  # Budget status from a running proxy
  quaestor status --addr 127.0.0.1:4000

  # Machine-readable output
  quaestor status --output json`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusFlags.output, "output", "o", "text", "output format (text, json)")
	statusCmd.Flags().StringVar(&statusFlags.addr, "addr", "", "query a running proxy at this address instead of the ledger")
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(statusFlags.output)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return fmt.Errorf("status does not support CSV output")
	}

	status, err := fetchStatus()
	if err != nil {
		return err
	}

	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(os.Stdout, status)
	}

	printStatus(status)
	return nil
}

// fetchStatus reads the budget status from a running proxy or, by
// default, straight from the ledger database.
func fetchStatus() (*ledger.BudgetStatus, error) {
	if statusFlags.addr != "" {
		return fetchStatusHTTP(statusFlags.addr)
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// Before the proxy ever ran there is no database. Nothing is spent;
	// report the configured limits over an empty store.
	if _, err := os.Stat(cfg.Storage.Path); os.IsNotExist(err) {
		led := ledger.New(storage.NewMemoryStore(), ledgerConfigFrom(cfg), nil)
		return led.Snapshot(context.Background(), time.Now())
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
	return led.Snapshot(context.Background(), time.Now())
}

func fetchStatusHTTP(addr string) (*ledger.BudgetStatus, error) {
	url := fmt.Sprintf("http://%s/v1/budget", addr)
	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("proxy not reachable at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("proxy returned %s for %s", resp.Status, url)
	}

	var status ledger.BudgetStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode budget status: %w", err)
	}
	return &status, nil
}

// printStatus renders the budget as colored bars. Monthly progress is
// measured against the effective limit including rollover, daily
// progress against the soft target.
func printStatus(st *ledger.BudgetStatus) {
	monthlyColor := cli.ColorForPercent(st.MonthlyPercent)
	dailyColor := cli.ColorForPercent(st.DailyPercent)

	fmt.Println("Budget Status")
	fmt.Printf("  Monthly  %s  %s\n",
		cli.Colorize(cli.Bar(st.MonthlyPercent, cli.DefaultBarWidth), monthlyColor),
		cli.Colorize(fmt.Sprintf("€%.2f/€%.2f (%.0f%%)",
			st.MonthlySpent.EUR(), st.MonthlyLimit.EUR(), st.MonthlyPercent), monthlyColor),
	)
	fmt.Printf("  Today    %s  %s\n",
		cli.Colorize(cli.Bar(st.DailyPercent, cli.DefaultBarWidth), dailyColor),
		cli.Colorize(fmt.Sprintf("€%.2f/€%.2f (%.0f%%)",
			st.DailySpent.EUR(), st.DailySoftLimit.EUR(), st.DailyPercent), dailyColor),
	)
	fmt.Printf("  Rollover: €%.2f\n", st.MonthlyRollover.EUR())
	fmt.Printf("  Resets: %d days\n", st.DaysUntilReset)
}
