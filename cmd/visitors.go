package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/visitdesk/pkg/apperr"
	"github.com/harrisonrobin/visitdesk/pkg/dial"
	"github.com/harrisonrobin/visitdesk/pkg/fields"
	"github.com/harrisonrobin/visitdesk/pkg/format"
	"github.com/harrisonrobin/visitdesk/pkg/visitors"
)

var (
	listSearch    string
	listAscending bool
	showIDColumn  string
	asJSON        bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the first page of visitors",
	Long:  "List up to 50 visitors ordered by date of visit, optionally filtered by name.",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show every field of one visitor",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Format visitor records read from standard input",
	Long: `Read a JSON array of records (or one JSON object per line) from standard
input and print each one the way the detail screen lays it out. No backend is
contacted.`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

var dialCmd = &cobra.Command{
	Use:   "dial <number>",
	Short: "Open the system dialer for a phone number",
	Args:  cobra.ExactArgs(1),
	RunE:  runDial,
}

func init() {
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "case-insensitive name filter")
	listCmd.Flags().BoolVar(&listAscending, "asc", false, "oldest visits first")
	listCmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	showCmd.Flags().StringVar(&showIDColumn, "id-col", visitors.DefaultIDColumn, "column holding the id")
	showCmd.Flags().BoolVar(&asJSON, "json", false, "print the raw record as JSON")

	renderCmd.Flags().BoolVar(&asJSON, "json", false, "print sections as JSON")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(dialCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(stderrLogger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	page, err := a.visitors.List(cmd.Context(), visitors.Query{Search: listSearch, Descending: !listAscending})
	if err != nil {
		return displayError(err, apperr.Fetch)
	}

	out := cmd.OutOrStdout()
	summaries := make([]visitors.Summary, 0, len(page.Rows))
	for _, row := range page.Rows {
		summaries = append(summaries, visitors.Summarize(row))
	}
	if asJSON {
		return writeJSON(out, struct {
			Total    *int64             `json:"total"`
			Visitors []visitors.Summary `json:"visitors"`
		}{page.Total, summaries})
	}
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No visitors found.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDATE\tCENTER\tPHONE")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Date, s.Center, s.Phone)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if page.Total != nil && *page.Total > 0 {
		fmt.Fprintf(out, "\nShowing up to %d of %s\n", visitors.PageSize, format.Format(*page.Total))
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(stderrLogger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	row, err := a.visitors.Get(cmd.Context(), args[0], showIDColumn)
	if err != nil {
		return displayError(err, apperr.NotFound)
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), row)
	}
	return printSections(cmd.OutOrStdout(), visitors.Detail(row))
}

func runRender(cmd *cobra.Command, args []string) error {
	records, err := fields.DecodeRecords(cmd.InOrStdin())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		all := make([][]visitors.DetailSection, 0, len(records))
		for _, r := range records {
			all = append(all, visitors.Detail(r))
		}
		return writeJSON(out, all)
	}
	for i, r := range records {
		if i > 0 {
			fmt.Fprintln(out, strings.Repeat("=", 40))
		}
		if err := printSections(out, visitors.Detail(r)); err != nil {
			return err
		}
	}
	return nil
}

func runDial(cmd *cobra.Command, args []string) error {
	if !strings.ContainsAny(args[0], "0123456789") {
		return fmt.Errorf("not a phone number: %q", args[0])
	}
	if err := phoneDialer.Dial(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to open dialer: %w", err)
	}
	return nil
}

// phoneDialer is replaced in tests.
var phoneDialer dial.Dialer = dial.Launcher{}

func printSections(w io.Writer, sections []visitors.DetailSection) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	first := true
	for _, sec := range sections {
		if len(sec.Fields) == 0 {
			continue
		}
		if !first {
			fmt.Fprintln(tw)
		}
		first = false
		fmt.Fprintf(tw, "%s\n", sec.Title)
		for _, f := range sec.Fields {
			value := f.Value
			if f.Tel != "" {
				value += "  (" + f.Tel + ")"
			}
			fmt.Fprintf(tw, "  %s\t%s\n", f.Label, value)
		}
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// displayError turns err into the message the interface would show inline.
func displayError(err error, kind apperr.Kind) error {
	return errors.New(apperr.Message(err, kind.Fallback()))
}
