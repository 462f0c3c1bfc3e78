package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/gaurav-prasanna/recipepipe/history"
	"github.com/spf13/cobra"
)

var (
	flagHistoryLimit int
	flagHistoryURL   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent imports",
	Long: `History lists recorded imports, newest first. Recording is enabled by
setting history.path (or COOKLANG__HISTORY__PATH).`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Maximum number of entries")
	historyCmd.Flags().StringVar(&flagHistoryURL, "url", "", "Only show imports of this URL")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if cfg.History.Path == "" {
		return errors.New("history is disabled: set history.path in the config")
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	var entries []history.Entry
	if flagHistoryURL != "" {
		entries, err = store.ForURL(cmd.Context(), flagHistoryURL)
	} else {
		entries, err = store.Recent(cmd.Context(), flagHistoryLimit)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tKIND\tSTATUS\tEXTRACTOR\tPROVIDER\tDURATION\tSOURCE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Kind, e.Status,
			dash(e.Extractor), dash(e.Provider), e.Duration.Round(time.Millisecond), e.Source)
		if e.Error != "" {
			fmt.Fprintf(tw, "\t\t\t\t\t\t  %s\n", e.Error)
		}
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
