// Package categorize handles transaction categorization commands
package categorize

import (
	"fmt"
	"text/tabwriter"

	"fjacquet/fintrack/cmd/root"
	"fjacquet/fintrack/internal/models"

	"github.com/spf13/cobra"
)

var (
	explain  bool
	suggest  bool
	keyword  string
	category string
	priority int
)

// Cmd represents the categorize command
var Cmd = &cobra.Command{
	Use:   "categorize [description...]",
	Short: "Categorize transaction descriptions",
	Long: `Categorize one or more descriptions the way an import would: your own
rules first, then the keyword buckets. With --suggest, descriptions nothing
matched are sent to the AI assistant when it is enabled.`,
	Args: cobra.MinimumNArgs(1),
	RunE: categorizeFunc,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage categorization rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your rules in evaluation order",
	Args:  cobra.NoArgs,
	RunE:  listRules,
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a rule mapping a keyword to a category",
	Args:  cobra.NoArgs,
	RunE:  addRule,
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  deleteRule,
}

func init() {
	Cmd.Flags().BoolVar(&explain, "explain", false, "Show the outcome of every strategy")
	Cmd.Flags().BoolVar(&suggest, "suggest", false, "Ask the AI assistant when no rule or keyword matches")

	rulesAddCmd.Flags().StringVarP(&keyword, "keyword", "k", "", "Text to look for in the description")
	rulesAddCmd.Flags().StringVarP(&category, "category", "g", "", "Category to assign")
	rulesAddCmd.Flags().IntVarP(&priority, "priority", "p", 0, "Higher priorities are evaluated first")
	_ = rulesAddCmd.MarkFlagRequired("keyword")
	_ = rulesAddCmd.MarkFlagRequired("category")

	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd, rulesDeleteCmd)
	Cmd.AddCommand(rulesCmd)
}

func categorizeFunc(cmd *cobra.Command, args []string) error {
	app := root.App()
	c := app.GetCategorizer()
	ctx := cmd.Context()

	rules, err := c.FetchRules(ctx, root.UserID())
	if err != nil {
		app.GetLogger().WithError(err).Warn("Categorizing without rules")
		rules = nil
	}

	if suggest && !c.SuggestionsEnabled() {
		app.GetLogger().Warn("AI suggestions are not configured, using rules and keywords only")
	}

	out := cmd.OutOrStdout()
	for _, description := range args {
		cat, strategy := c.CategorizeOne(ctx, description, rules)
		if suggest {
			cat, strategy, err = c.Suggest(ctx, root.UserID(), description, rules)
			if err != nil {
				return err
			}
		}
		if strategy == "" {
			strategy = "default"
		}
		fmt.Fprintf(out, "%s\t%s\t(%s)\n", description, cat, strategy)
		if explain {
			fmt.Fprintf(out, "  %s\n", c.Explain(ctx, description, rules).Summary())
		}
	}
	return nil
}

func listRules(cmd *cobra.Command, args []string) error {
	rules, err := root.App().GetCategorizer().FetchRules(cmd.Context(), root.UserID())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRIORITY\tKEYWORD\tCATEGORY\tACTIVE")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%t\n", r.ID, r.Priority, r.Keyword, r.Category, r.IsActive)
	}
	return tw.Flush()
}

func addRule(cmd *cobra.Command, args []string) error {
	rule := &models.CategorizationRule{
		Keyword:  keyword,
		Category: category,
		Priority: priority,
		IsActive: true,
	}
	if err := root.App().GetCategorizer().SaveRule(cmd.Context(), root.UserID(), rule); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added rule %s: %q -> %s\n", rule.ID, rule.Keyword, rule.Category)
	return nil
}

func deleteRule(cmd *cobra.Command, args []string) error {
	if err := root.App().GetCategorizer().DeleteRule(cmd.Context(), root.UserID(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted rule %s\n", args[0])
	return nil
}
