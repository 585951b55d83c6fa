package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/mathguide/internal/llm"
	"github.com/abhisek/mathguide/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect archived sessions and journaled activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withStore(cmd, func(st *store.Store) error {
			archived, err := st.Journal().ArchivedSessions(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("query archived sessions: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(archived) == 0 {
				fmt.Fprintln(out, "No archived sessions yet.")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-19s  %8s  %8s\n", "Session", "Archived", "Attempts", "Problems")
			fmt.Fprintln(out, strings.Repeat("─", 78))
			for _, a := range archived {
				fmt.Fprintf(out, "%-36s  %-19s  %8d  %8d\n",
					a.SessionID, a.ArchivedAt.Local().Format("2006-01-02 15:04:05"), a.Attempts, a.ProblemsSeen)
			}
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the attempts and error categories of one session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		id := args[0]
		return withStore(cmd, func(st *store.Store) error {
			ctx := cmd.Context()
			j := st.Journal()
			attempts, err := j.Attempts(ctx, id, store.QueryOpts{Limit: limit})
			if err != nil {
				return fmt.Errorf("query attempts: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(attempts) == 0 {
				fmt.Fprintf(out, "No attempts recorded for session %s.\n", id)
				return nil
			}

			fmt.Fprintf(out, "%-4s  %-10s  %-18s  %4s  %-24s  %s\n",
				"#", "Problem", "Status", "Hint", "Category", "Input")
			fmt.Fprintln(out, strings.Repeat("─", 96))
			for _, a := range attempts {
				fmt.Fprintf(out, "%-4d  %-10s  %-18s  %4d  %-24s  %s\n",
					a.AttemptIndex, a.ProblemID, a.Status, a.HintLevel, a.Category, truncate(a.Input, 28))
			}

			counts, err := j.CategoryCounts(ctx, id)
			if err != nil {
				return fmt.Errorf("query categories: %w", err)
			}
			if len(counts) > 0 {
				fmt.Fprintln(out, "\nMistakes by category")
				for _, c := range slices.Sorted(maps.Keys(counts)) {
					fmt.Fprintf(out, "  %-28s %d\n", c, counts[c])
				}
			}
			return nil
		})
	},
}

var historyLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Show LLM token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(st *store.Store) error {
			usage, err := st.Journal().LLMUsage(cmd.Context())
			if err != nil {
				return fmt.Errorf("query usage: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(usage) == 0 {
				fmt.Fprintln(out, "No LLM usage recorded yet.")
				return nil
			}

			fmt.Fprintf(out, "%-12s  %-28s  %6s  %6s  %10s  %10s  %10s\n",
				"Provider", "Model", "Calls", "Failed", "Input", "Output", "Cost")
			fmt.Fprintln(out, strings.Repeat("─", 94))

			var total float64
			var unknown []string
			for _, u := range usage {
				cost := "?"
				if c, ok := llm.EstimateCost(u.Model, u.InputTokens, u.OutputTokens); ok {
					total += c
					cost = formatCost(c)
				} else {
					unknown = append(unknown, u.Model)
				}
				fmt.Fprintf(out, "%-12s  %-28s  %6d  %6d  %10d  %10d  %10s\n",
					u.Provider, truncate(u.Model, 28), u.Requests, u.Failures, u.InputTokens, u.OutputTokens, cost)
			}
			fmt.Fprintln(out, strings.Repeat("─", 94))
			label := "TOTAL"
			if len(unknown) > 0 {
				label = "TOTAL (partial)"
			}
			fmt.Fprintf(out, "%-84s  %10s\n", label, formatCost(total))
			if len(unknown) > 0 {
				fmt.Fprintf(out, "\nPricing unavailable for: %s\n", strings.Join(unknown, ", "))
			}
			return nil
		})
	},
}

// withStore opens the journal database for the duration of fn.
func withStore(cmd *cobra.Command, fn func(*store.Store) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.OpenContext(cmd.Context(), dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()
	return fn(st)
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of sessions to show")
	historyShowCmd.Flags().IntP("limit", "n", 0, "Number of attempts to show (0 = all)")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyLLMCmd)
}
