package cmd

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var summaryWindowDays int

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "View cost summary",
	Long: `View total cost, the trailing window, the daily average and the
projected monthly cost, with per-client, per-agent and per-provider rollups.`,
	RunE: runSummary,
}

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "View QA score summary",
	RunE:  runQuality,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(qualityCmd)

	summaryCmd.Flags().IntVarP(&summaryWindowDays, "window", "w", 0, "Trailing window in days (server default when unset)")
}

func runSummary(cmd *cobra.Command, args []string) error {
	params := url.Values{}
	if summaryWindowDays != 0 {
		params.Set("window_days", strconv.Itoa(summaryWindowDays))
	}

	var result CostSummary
	if err := getJSON("/api/v1/costs/summary", params, &result); err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(result)
	}

	printCostSummary(result)
	return nil
}

func printCostSummary(summary CostSummary) {
	fmt.Println("Cost Summary")
	fmt.Println("============")
	fmt.Println()

	fmt.Printf("Total Cost:      $%.2f\n", summary.TotalCost)
	fmt.Printf("Calls:           %d\n", summary.CallCount)
	fmt.Printf("Last %d Days:     $%.2f (%d calls)\n", summary.WindowDays, summary.WindowedCost, summary.WindowedCalls)
	fmt.Printf("Daily Average:   $%.2f\n", summary.AverageDailyCost)
	fmt.Printf("Projected Month: $%.2f\n", summary.ProjectedMonthlyCost)
	fmt.Printf("Month to Date:   $%.2f\n", summary.MonthToDateCost)
	fmt.Printf("Previous Month:  $%.2f\n", summary.PreviousMonthCost)

	if !summary.PeriodStart.IsZero() && !summary.PeriodEnd.IsZero() {
		fmt.Printf("Period:          %s to %s\n",
			summary.PeriodStart.Format("2006-01-02"),
			summary.PeriodEnd.Format("2006-01-02"))
	}

	printRollup("By Client", summary.ByClient)
	printRollup("By Agent", summary.ByAgent)
	printRollup("By Provider", summary.ByProvider)
	printDailyCosts(summary.DailyCosts)
}

func printDailyCosts(days []DailyCost) {
	if len(days) == 0 {
		return
	}
	fmt.Println("\nDaily Costs:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, d := range days {
		fmt.Fprintf(w, "  %s\t%d calls\t$%.2f\n", d.Date.Format("2006-01-02"), d.Calls, d.Cost)
	}
	w.Flush()
}

func printRollup(title string, entities []EntityCost) {
	if len(entities) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", title)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, e := range entities {
		fmt.Fprintf(w, "  %s\t%d calls\t$%.2f\n", e.Name, e.CallCount, e.TotalCost)
	}
	w.Flush()
}

func runQuality(cmd *cobra.Command, args []string) error {
	var result QualitySummary
	if err := getJSON("/api/v1/quality/summary", nil, &result); err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(result)
	}

	fmt.Println("Quality Summary")
	fmt.Println("===============")
	fmt.Println()

	if result.ScoredConversations == 0 {
		fmt.Println("No scored conversations.")
		return nil
	}

	fmt.Printf("Scored Conversations: %d\n", result.ScoredConversations)
	fmt.Printf("Average Score:        %.1f/100\n", result.AverageOverallScore)
	fmt.Printf("Escalations Needed:   %d\n", result.EscalationsNeeded)
	fmt.Printf("Human Reviewed:       %d\n", result.HumanReviewed)
	fmt.Printf("Bands:                good %d, fair %d, poor %d\n",
		result.ByBand["good"], result.ByBand["fair"], result.ByBand["poor"])
	fmt.Printf("Urgency:              low %d, medium %d, high %d\n",
		result.ByUrgency["low"], result.ByUrgency["medium"], result.ByUrgency["high"])
	return nil
}
