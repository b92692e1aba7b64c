package app

import (
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/sessionlens/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the classifier over MCP stdio",
	Long: `Start a Model Context Protocol stdio server that Claude Code can
query during a session. Requests and responses are newline-delimited
JSON-RPC 2.0 on stdin and stdout; logs go to stderr. Tools:

  classify_session     Classify a supplied raw session record
  get_usage_report     Aggregate report over the last N days
  get_recent_outcomes  Last N sessions with task type, outcome, and confidence
  get_suggestions      Ranked improvement suggestions for the last N days

Add to your Claude Code MCP configuration (~/.claude/settings.json):
  {"mcpServers":{"sessionlens":{"command":"sessionlens","args":["mcp"]}}}`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	logger.Debug("starting mcp server", "version", appVersion, "claude_home", appConfig.ClaudeHome)
	return mcp.NewServer(appConfig, appVersion, logger).Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
}
