package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/boardtrack/internal/status"
	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTable writes rows as aligned columns under an upper-case header.
func printTable(cmd *cobra.Command, header []string, rows [][]string) {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	w.Flush()
	fmt.Fprint(cmd.OutOrStdout(), sb.String())
}

// emit prints v as JSON in --json mode and otherwise calls text.
func (a *app) emit(cmd *cobra.Command, v any, text func()) error {
	if a.flags.jsonMode {
		return printJSON(cmd, v)
	}
	text()
	return nil
}

// colorStatus renders a derived status. color disables itself when
// stdout is not a terminal.
func colorStatus(s status.Status) string {
	switch s {
	case status.Complete:
		return color.GreenString(string(s))
	case status.Active:
		return color.YellowString(string(s))
	case status.Pending:
		return color.CyanString(string(s))
	default:
		return color.RedString(string(s))
	}
}

func colorResult(result string) string {
	switch {
	case strings.EqualFold(result, types.ResultPass):
		return color.GreenString(result)
	case strings.EqualFold(result, types.ResultFail):
		return color.RedString(result)
	default:
		return result
	}
}

func progress(s status.Summary) string {
	return fmt.Sprintf("%d/%d pass, %d fail", s.Pass, s.Total, s.Fail)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

// parseID parses a numeric identifier argument.
func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s id %q", types.ErrValidation, what, s)
	}
	return id, nil
}
