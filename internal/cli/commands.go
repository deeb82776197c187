package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"eatdecider/backend/internal/app"
	"eatdecider/backend/internal/domain"
	"eatdecider/backend/internal/recommendation"
)

func newRecommendCommand(root *rootOptions) *cobra.Command {
	prefs := domain.DefaultPreferences()
	var strategy string

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank menu items against your preferences",
		Example: `  eatctl recommend --budget 350 --veg-only --spice 3
  eatctl recommend --budget 500 --query biryani --strategy archetypes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				resp, err := a.Service.Recommend(ctx, domain.RecommendationRequest{
					UserPreferences: prefs,
					Strategy:        strategy,
				})
				if err != nil {
					return err
				}
				if root.output == "json" {
					return printJSON(cmd.OutOrStdout(), resp)
				}
				printPicks(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.Float64Var(&prefs.Budget, "budget", 0, "maximum all-in price in rupees (required, at least 50)")
	f.BoolVar(&prefs.VegOnly, "veg-only", prefs.VegOnly, "only vegetarian items")
	f.Float64Var(&prefs.Spice, "spice", prefs.Spice, "preferred spice level 0-5")
	f.BoolVar(&prefs.LowOil, "low-oil", prefs.LowOil, "avoid oily dishes")
	f.Float64Var(&prefs.Novelty, "novelty", prefs.Novelty, "weight 0-1 for cuisines you rarely pick")
	f.IntVar(&prefs.ETALimit, "eta-limit", prefs.ETALimit, "maximum delivery time in minutes (10-120)")
	f.StringVarP(&prefs.Query, "query", "q", "", "search terms matched against name, restaurant and tags")
	f.IntVarP(&prefs.Count, "count", "n", 0, "number of picks for the ranked strategy (1-50, default 3)")
	f.StringVar(&strategy, "strategy", domain.StrategyRanked, "ranked or archetypes")
	_ = cmd.MarkFlagRequired("budget")
	return cmd
}

func newFeedbackCommand(root *rootOptions) *cobra.Command {
	var (
		outcome string
		rating  float64
	)

	cmd := &cobra.Command{
		Use:   "feedback ITEM_ID",
		Short: "Record that you picked an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := domain.FeedbackRequest{ItemID: args[0], Outcome: outcome}
			if cmd.Flags().Changed("rating") {
				req.Rating = &rating
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				resp, err := a.Service.RecordFeedback(ctx, req)
				if err != nil && !errors.Is(err, domain.ErrPersistence) {
					return err
				}
				if root.output == "json" {
					if perr := printJSON(cmd.OutOrStdout(), resp); perr != nil {
						return perr
					}
				} else {
					printHistory(cmd.OutOrStdout(), resp.History)
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&outcome, "outcome", domain.OutcomeSelected, "selected, ordered or disliked")
	cmd.Flags().Float64Var(&rating, "rating", 0, "optional rating 0-5")
	return cmd
}

func newMenuCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "List the merged catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				menu := a.Service.Menu(ctx)
				if root.output == "json" {
					return printJSON(cmd.OutOrStdout(), menu)
				}
				printMenu(cmd.OutOrStdout(), menu.Items)
				return nil
			})
		},
	}
}

func newImportShareCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import-share URL",
		Short: "Import a dish from a food delivery share link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				resp, err := a.Service.ImportShare(ctx, domain.ShareImportRequest{URL: args[0]})
				if err != nil {
					return err
				}
				if root.output == "json" {
					return printJSON(cmd.OutOrStdout(), resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%s) ₹%.0f as %s\n",
					resp.Item.Name, resp.Item.Restaurant, resp.Item.Price, resp.Item.ID)
				return nil
			})
		},
	}
}

func newHistoryCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show cuisine counts and recent picks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				state := a.Service.History(ctx)
				if root.output == "json" {
					return printJSON(cmd.OutOrStdout(), state)
				}
				printHistory(cmd.OutOrStdout(), state)
				return nil
			})
		},
	}
}

func newEventsCommand(root *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recorded feedback events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				list, err := a.Service.FeedbackEvents(ctx, limit)
				if err != nil {
					return err
				}
				if root.output == "json" {
					return printJSON(cmd.OutOrStdout(), list)
				}
				for _, ev := range list {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %-9s %-16s %s\n",
						ev.CreatedAt.Format("2006-01-02 15:04"), ev.Outcome, ev.Cuisine, ev.ItemID)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum events to list")
	return cmd
}

func newFeesCommand(root *rootOptions) *cobra.Command {
	var tiered bool
	cmd := &cobra.Command{
		Use:   "fees SUBTOTAL",
		Short: "Show the all-in price breakdown for a subtotal",
		Example: `  eatctl fees 250
  eatctl fees 300 --tiered`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subtotal, err := strconv.ParseFloat(args[0], 64)
			if err != nil || subtotal < 0 {
				return fmt.Errorf("subtotal must be a non-negative number, got %q", args[0])
			}
			fees := recommendation.CalculateFees(subtotal)
			if tiered {
				fees = recommendation.CalculateLegacyFees(subtotal)
			}
			if root.output == "json" {
				return printJSON(cmd.OutOrStdout(), fees)
			}
			printFees(cmd.OutOrStdout(), fees)
			return nil
		},
	}
	cmd.Flags().BoolVar(&tiered, "tiered", false, "use the flat tier discount (50 from 200, 80 from 300)")
	return cmd
}
