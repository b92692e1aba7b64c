package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/sessionlens/internal/analyzer"
	"github.com/blackwell-systems/sessionlens/internal/output"
	"github.com/blackwell-systems/sessionlens/internal/pipeline"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <file.json>",
	Short: "Classify raw session records from a JSON file",
	Long: `Classify raw session records without reading transcripts. The file may
hold a single record, an array of records, or an object with a "sessions"
array. A record with a negative duration or count is rejected.

Example record:
  {"session_id": "abc", "project": "/home/dev/api", "duration_minutes": 12,
   "tool_call_count": 8, "tools_used": ["Read", "Edit"],
   "files_touched": ["client.go"], "commands_run": ["go test ./..."],
   "originating_text": "fix the retry bug in the client"}`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	raws, err := readRawRecords(args[0])
	if err != nil {
		return err
	}
	classified, err := pipeline.ClassifyRaw(cmd.Context(), raws, appConfig)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(w, classified)
	}
	renderClassified(w, classified)
	return nil
}

func renderClassified(w io.Writer, classified []analyzer.ClassifiedSession) {
	fmt.Fprintln(w, output.Section("Classified Sessions"))
	fmt.Fprintln(w)
	if len(classified) == 0 {
		fmt.Fprintf(w, " %s\n", output.StyleMuted.Render("No records in input."))
		return
	}
	tbl := output.NewTable("ID", "Task", "Type", "Completion", "Outcome", "Conf", "Issues").AlignRight(5)
	for _, c := range classified {
		tbl.AddRow(
			output.Truncate(c.SessionID, 12),
			string(c.TaskType),
			string(c.SessionType),
			string(c.Completion.Status),
			output.Outcome(c.Outcome),
			fmt.Sprintf("%d", c.ConfidenceScore),
			joinOrNone(c.Issues),
		)
	}
	tbl.Fprint(w)
}
