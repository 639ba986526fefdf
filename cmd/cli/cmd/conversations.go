package cmd

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

var (
	conversationsLimit     int
	conversationsOffset    int
	conversationsProvider  string
	conversationsClient    string
	conversationsWorkspace string
)

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"calls"},
	Short:   "List recent conversations with QA scores",
	Long: `List conversations newest first. Filters combine; --offset and --limit
page through the matches.`,
	RunE: runConversations,
}

var conversationCmd = &cobra.Command{
	Use:   "conversation [id]",
	Short: "Show one conversation and its QA score",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversation,
}

func init() {
	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(conversationCmd)

	conversationsCmd.Flags().IntVarP(&conversationsLimit, "limit", "l", 20, "Maximum conversations to list")
	conversationsCmd.Flags().IntVar(&conversationsOffset, "offset", 0, "Number of matching conversations to skip")
	conversationsCmd.Flags().StringVarP(&conversationsProvider, "provider", "p", "", "Only this voice provider")
	conversationsCmd.Flags().StringVarP(&conversationsClient, "client", "c", "", "Only this client")
	conversationsCmd.Flags().StringVar(&conversationsWorkspace, "workspace", "", "Only this workspace ID")
}

func runConversations(cmd *cobra.Command, args []string) error {
	if conversationsOffset < 0 {
		return fmt.Errorf("invalid offset %d: must not be negative", conversationsOffset)
	}

	params := url.Values{}
	if conversationsLimit > 0 {
		params.Set("limit", strconv.Itoa(conversationsLimit))
	}
	if conversationsOffset > 0 {
		params.Set("offset", strconv.Itoa(conversationsOffset))
	}
	if conversationsProvider != "" {
		params.Set("provider", conversationsProvider)
	}
	if conversationsClient != "" {
		params.Set("client", conversationsClient)
	}
	if conversationsWorkspace != "" {
		params.Set("workspace_id", conversationsWorkspace)
	}

	var result struct {
		Conversations []JoinedConversation `json:"conversations"`
		Count         int                  `json:"count"`
		Total         int                  `json:"total"`
		Offset        int                  `json:"offset"`
	}
	if err := getJSON("/api/v1/conversations", params, &result); err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(result)
	}

	if len(result.Conversations) == 0 {
		fmt.Println("No conversations found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tCLIENT\tAGENT\tPROVIDER\tSTATUS\tDURATION\tCOST\tQA")
	fmt.Fprintln(w, "--\t-------\t------\t-----\t--------\t------\t--------\t----\t--")
	for _, c := range result.Conversations {
		qa := "-"
		if c.QAScore != nil {
			qa = fmt.Sprintf("%.0f", c.QAScore.OverallScore)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%ds\t$%.2f\t%s\n",
			truncateString(c.ID, 12),
			c.CallStartedAt.Format("2006-01-02 15:04"),
			truncateString(c.ClientName, 24),
			truncateString(c.AgentID, 24),
			c.Provider,
			c.CallStatus,
			c.CallDurationSeconds,
			c.CallCost,
			qa,
		)
	}
	w.Flush()

	fmt.Printf("\nShowing: %d-%d of %d conversations\n",
		result.Offset+1, result.Offset+result.Count, result.Total)
	return nil
}

func runConversation(cmd *cobra.Command, args []string) error {
	var c JoinedConversation
	if err := getJSON("/api/v1/conversations/"+url.PathEscape(args[0]), nil, &c); err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(c)
	}

	title := "Conversation " + c.ID
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", utf8.RuneCountInString(title)))
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Client:\t%s\n", c.ClientName)
	fmt.Fprintf(w, "Agent:\t%s\n", c.AgentID)
	fmt.Fprintf(w, "Provider:\t%s\n", c.Provider)
	fmt.Fprintf(w, "Workspace:\t%s\n", c.WorkspaceID)
	fmt.Fprintf(w, "Status:\t%s\n", c.CallStatus)
	fmt.Fprintf(w, "Started:\t%s\n", c.CallStartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Duration:\t%ds\n", c.CallDurationSeconds)
	fmt.Fprintf(w, "Cost:\t$%.2f\n", c.CallCost)
	w.Flush()

	fmt.Println()
	if c.QAScore == nil {
		fmt.Println("No QA score.")
		return nil
	}

	fmt.Println("QA Score:")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Overall:\t%.0f/100\n", c.QAScore.OverallScore)
	fmt.Fprintf(w, "  Comprehension:\t%.0f\n", c.QAScore.ComprehensionScore)
	fmt.Fprintf(w, "  Resolution:\t%.0f\n", c.QAScore.ResolutionScore)
	fmt.Fprintf(w, "  Tone:\t%.0f\n", c.QAScore.ToneScore)
	fmt.Fprintf(w, "  Compliance:\t%.0f\n", c.QAScore.ComplianceScore)
	fmt.Fprintf(w, "  Urgency:\t%s\n", c.QAScore.UrgencyLevel)
	fmt.Fprintf(w, "  Escalation:\t%t\n", c.QAScore.EscalationNeeded)
	fmt.Fprintf(w, "  Reviewed:\t%t\n", c.QAScore.HumanReviewed)
	w.Flush()
	if c.QAScore.Summary != "" {
		fmt.Printf("\n%s\n", c.QAScore.Summary)
	}
	return nil
}
