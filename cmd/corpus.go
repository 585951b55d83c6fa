package cmd

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/abhisek/mathguide/internal/corpus"
	"github.com/abhisek/mathguide/internal/verify"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Browse and check the built-in problem corpus",
}

var corpusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List problems (optionally filtered by topic or difficulty)",
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		difficulty, _ := cmd.Flags().GetInt("difficulty")
		if topic != "" && !validTopic(topic) {
			return fmt.Errorf("unknown topic %q", topic)
		}

		problems := lo.Filter(corpus.Default().Problems, func(p corpus.Problem, _ int) bool {
			return (topic == "" || p.Topic == corpus.Topic(topic)) &&
				(difficulty == 0 || p.Difficulty == difficulty)
		})
		if len(problems) == 0 {
			return fmt.Errorf("no problems match")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-10s  %-20s  %4s  %5s  %6s  %s\n",
			"ID", "Topic", "Diff", "Steps", "Pinned", "Statement")
		fmt.Fprintln(out, strings.Repeat("─", 100))
		for _, p := range problems {
			pinned := ""
			if p.Pinned {
				pinned = "yes"
			}
			fmt.Fprintf(out, "%-10s  %-20s  %4d  %5d  %6s  %s\n",
				p.ID, p.Topic, p.Difficulty, len(p.Steps), pinned, truncate(p.Statement, 48))
		}
		fmt.Fprintf(out, "\n%d problems\n", len(problems))
		return nil
	},
}

var corpusConceptsCmd = &cobra.Command{
	Use:   "concepts",
	Short: "List concepts in prerequisite order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := corpus.Default()
		g := corpus.NewGraph(cat.Concepts)
		used := lo.CountValues(lo.FlatMap(cat.Problems, func(p corpus.Problem, _ int) []string {
			return p.ConceptIDs
		}))

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-24s  %-28s  %8s  %s\n", "ID", "Name", "Problems", "Prerequisites")
		fmt.Fprintln(out, strings.Repeat("─", 90))
		for _, c := range g.TopologicalOrder() {
			fmt.Fprintf(out, "%-24s  %-28s  %8d  %s\n",
				c.ID, truncate(c.Name, 28), used[c.ID], strings.Join(g.Prerequisites(c.ID), ", "))
		}
		fmt.Fprintf(out, "\n%d concepts\n", g.Len())
		return nil
	},
}

var corpusValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check corpus structure and that every final answer matches its last step",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := corpus.Default()
		if err := corpus.Validate(cat, verify.Equivalent); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d problems, %d concepts\n", len(cat.Problems), len(cat.Concepts))
		return nil
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	corpusListCmd.Flags().String("topic", "", "Filter by topic (e.g. \"linear equations\")")
	corpusListCmd.Flags().Int("difficulty", 0, "Filter by difficulty (1-5)")

	corpusCmd.AddCommand(corpusListCmd)
	corpusCmd.AddCommand(corpusConceptsCmd)
	corpusCmd.AddCommand(corpusValidateCmd)
}
