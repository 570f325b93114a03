// Package recurring handles recurring transaction commands
package recurring

import (
	"fmt"
	"text/tabwriter"

	"fjacquet/fintrack/cmd/root"
	"fjacquet/fintrack/internal/models"
	"fjacquet/fintrack/internal/validation"

	"github.com/spf13/cobra"
)

var (
	description string
	category    string
	txType      string
	amount      string
	frequency   string
	startDate   string
	endDate     string
)

// Cmd represents the recurring command
var Cmd = &cobra.Command{
	Use:   "recurring",
	Short: "Manage recurring transactions and their due dates",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recurring transactions with their next due date",
	Args:  cobra.NoArgs,
	RunE:  listFunc,
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a recurring transaction",
	Example: `  fintrack recurring add -d Rent -g Housing -a 1200 -f monthly -s 2024-01-31
  fintrack recurring add -d Salary -g Income -t income -a 3000 -f monthly -s 2024-01-25`,
	Args: cobra.NoArgs,
	RunE: addFunc,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Roll forward every schedule whose due date has passed",
	Args:  cobra.NoArgs,
	RunE:  refreshFunc,
}

func init() {
	addCmd.Flags().StringVarP(&description, "description", "d", "", "Description")
	addCmd.Flags().StringVarP(&category, "category", "g", models.CategoryOther, "Category")
	addCmd.Flags().StringVarP(&txType, "type", "t", string(models.TransactionTypeExpense), "income or expense")
	addCmd.Flags().StringVarP(&amount, "amount", "a", "", "Amount")
	addCmd.Flags().StringVarP(&frequency, "frequency", "f", string(models.FrequencyMonthly), "daily, weekly, monthly or yearly")
	addCmd.Flags().StringVarP(&startDate, "start", "s", "", "First occurrence (YYYY-MM-DD)")
	addCmd.Flags().StringVarP(&endDate, "end", "e", "", "Last possible occurrence (YYYY-MM-DD)")
	_ = addCmd.MarkFlagRequired("description")
	_ = addCmd.MarkFlagRequired("amount")
	_ = addCmd.MarkFlagRequired("start")

	Cmd.AddCommand(listCmd, addCmd, refreshCmd)
}

func listFunc(cmd *cobra.Command, args []string) error {
	rows, err := root.App().GetRecurring().List(cmd.Context(), root.UserID())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNEXT DUE\tFREQUENCY\tAMOUNT\tCATEGORY\tDESCRIPTION\tACTIVE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			r.ID, r.NextDueDate, r.Frequency, r.Amount.StringFixed(2), r.Category, r.Description, r.IsActive)
	}
	return tw.Flush()
}

func addFunc(cmd *cobra.Command, args []string) error {
	amt, err := validation.Amount(amount, true)
	if err != nil {
		return err
	}
	r := &models.RecurringTransaction{
		Description: description,
		Category:    category,
		Type:        models.TransactionType(txType),
		Amount:      amt,
		Frequency:   models.Frequency(frequency),
		StartDate:   startDate,
		EndDate:     endDate,
	}
	if err := root.App().GetRecurring().Save(cmd.Context(), root.UserID(), r); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s, next due %s\n", r.Description, r.NextDueDate)
	return nil
}

func refreshFunc(cmd *cobra.Command, args []string) error {
	n, err := root.App().GetRecurring().Refresh(cmd.Context(), root.UserID())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %d recurring transactions\n", n)
	return nil
}
