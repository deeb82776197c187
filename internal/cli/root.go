// Package cli implements eatctl, a command line client that runs the
// recommendation service in-process against the configured stores.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"eatdecider/backend/internal/app"
	"eatdecider/backend/internal/config"
	"eatdecider/backend/internal/domain"
	"eatdecider/backend/internal/logging"
)

type rootOptions struct {
	configPath string
	output     string
	verbose    bool
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "eatctl",
		Short:         "Decide what to eat from the command line",
		Long:          `eatctl ranks menu items against your budget, spice and ETA preferences, records what you picked and imports items from share links.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.configPath != "" {
				if err := os.Setenv(config.ConfigPathEnvVar, opts.configPath); err != nil {
					return err
				}
			}
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			logging.Init(logging.Config{Level: level, Format: "console", Output: cmd.ErrOrStderr()})
			switch opts.output {
			case "text", "json":
				return nil
			default:
				return fmt.Errorf("--output must be text or json, got %q", opts.output)
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is ./config.yaml)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "output format: text or json")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		newRecommendCommand(opts),
		newFeedbackCommand(opts),
		newMenuCommand(opts),
		newImportShareCommand(opts),
		newHistoryCommand(opts),
		newEventsCommand(opts),
		newFeesCommand(opts),
	)
	return root
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp builds the application for the duration of one command.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("close failed")
		}
	}()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPicks(w io.Writer, resp domain.RecommendationResponse) {
	if len(resp.Picks) == 0 {
		fmt.Fprintln(w, resp.Note)
		return
	}
	for i, p := range resp.Picks {
		label := ""
		if p.Type != "" {
			label = "[" + p.Type + "] "
		}
		fmt.Fprintf(w, "%d. %s%s (%s) ₹%.2f\n", i+1, label, p.Item.Name, p.Item.Restaurant, p.Fees.Total)
		fmt.Fprintf(w, "   %s\n", p.Why)
		fmt.Fprintf(w, "   id: %s\n", p.Item.ID)
	}
	fmt.Fprintf(w, "%d candidates, strategy %s\n", resp.TotalCandidates, resp.Strategy)
}

func printFees(w io.Writer, fees domain.FeeBreakdown) {
	fmt.Fprintf(w, "subtotal  %10.2f\n", fees.Subtotal)
	fmt.Fprintf(w, "delivery  %10.2f\n", fees.Delivery)
	fmt.Fprintf(w, "platform  %10.2f\n", fees.PlatformFee)
	fmt.Fprintf(w, "tax       %10.2f\n", fees.Tax)
	fmt.Fprintf(w, "discount  %10.2f\n", -fees.Discount)
	fmt.Fprintf(w, "total     %10.2f\n", fees.Total)
}

func printMenu(w io.Writer, items []domain.MenuItem) {
	for _, item := range items {
		veg := "non-veg"
		if item.Veg {
			veg = "veg"
		}
		fmt.Fprintf(w, "%-40s %-24s %-14s %-7s ₹%-7.0f %3dm  %s\n",
			truncate(item.Name, 40), truncate(item.Restaurant, 24), truncate(item.Cuisine, 14),
			veg, item.Price, item.ETAMin, item.ID)
	}
}

func printHistory(w io.Writer, state domain.HistoryState) {
	if len(state.CuisineCounts) == 0 {
		fmt.Fprintln(w, "no selections yet")
		return
	}
	for _, cuisine := range state.SortedCuisines() {
		fmt.Fprintf(w, "%-20s %d\n", cuisine, state.CuisineCounts[cuisine])
	}
	fmt.Fprintf(w, "recent: %s\n", strings.Join(state.LastSelected, ", "))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
