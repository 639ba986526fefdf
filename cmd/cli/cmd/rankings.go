package cmd

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	rankingsGroup string
	rankingsN     int
	rankingsBy    string
)

var rankingsCmd = &cobra.Command{
	Use:   "rankings",
	Short: "Rank clients, agents or providers",
	Long: `Rank groups by total cost (ties broken by call count, then name)
or by call volume.`,
	RunE: runRankings,
}

func init() {
	rootCmd.AddCommand(rankingsCmd)

	rankingsCmd.Flags().StringVarP(&rankingsGroup, "group", "g", "client", "Group by (client, agent, provider)")
	rankingsCmd.Flags().IntVarP(&rankingsN, "top", "n", 0, "Number of entries (server default when unset)")
	rankingsCmd.Flags().StringVar(&rankingsBy, "by", "cost", "Rank by (cost, volume)")
}

func runRankings(cmd *cobra.Command, args []string) error {
	switch rankingsGroup {
	case "client", "agent", "provider":
	default:
		return fmt.Errorf("invalid group %q: must be client, agent or provider", rankingsGroup)
	}

	params := url.Values{}
	params.Set("group", rankingsGroup)
	if rankingsBy != "" {
		params.Set("by", rankingsBy)
	}
	if rankingsN != 0 {
		params.Set("n", strconv.Itoa(rankingsN))
	}

	var result struct {
		Group    string         `json:"group"`
		By       string         `json:"by"`
		Rankings []RankedEntity `json:"rankings"`
		Count    int            `json:"count"`
	}
	if err := getJSON("/api/v1/rankings", params, &result); err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(result)
	}

	if len(result.Rankings) == 0 {
		fmt.Println("No calls recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if result.Group == "agent" {
		fmt.Fprintln(w, "RANK\tNAME\tCLIENT\tCALLS\tCOST")
		fmt.Fprintln(w, "----\t----\t------\t-----\t----")
		for _, e := range result.Rankings {
			client := e.Client
			if client == "" {
				client = "(multiple)"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t$%.2f\n", e.Rank, truncateString(e.Name, 40), truncateString(client, 24), e.CallCount, e.TotalCost)
		}
	} else {
		fmt.Fprintln(w, "RANK\tNAME\tCALLS\tCOST")
		fmt.Fprintln(w, "----\t----\t-----\t----")
		for _, e := range result.Rankings {
			fmt.Fprintf(w, "%d\t%s\t%d\t$%.2f\n", e.Rank, truncateString(e.Name, 40), e.CallCount, e.TotalCost)
		}
	}
	w.Flush()

	fmt.Printf("\nTop %d %ss by %s\n", result.Count, result.Group, result.By)
	return nil
}
