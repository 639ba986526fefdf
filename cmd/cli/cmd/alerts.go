package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List budget and quality alerts",
	Long:  `List alerts, most severe first, then newest first.`,
	RunE:  runAlerts,
}

func init() {
	rootCmd.AddCommand(alertsCmd)
}

func runAlerts(cmd *cobra.Command, args []string) error {
	var result struct {
		Alerts []Alert `json:"alerts"`
		Count  int     `json:"count"`
	}
	if err := getJSON("/api/v1/alerts", nil, &result); err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(result)
	}

	if len(result.Alerts) == 0 {
		fmt.Println("No alerts.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEVERITY\tKIND\tSUBJECT\tTIME\tMESSAGE")
	fmt.Fprintln(w, "--------\t----\t-------\t----\t-------")
	for _, a := range result.Alerts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			strings.ToUpper(string(a.Severity)),
			a.Kind,
			truncateString(a.Subject, 30),
			a.Timestamp.Format("2006-01-02 15:04"),
			truncateString(a.Message, 80),
		)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d alerts\n", result.Count)
	return nil
}
