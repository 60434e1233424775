package cmd

import (
	"github.com/huangsam/indexhist/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the indexhist MCP server",
	Long:  `Launch an MCP server that lets AI agents fetch, save and load index history via standard tools.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// stdio carries the protocol, so console colors are off
		if err := sharedSetup(rootCtx, cmd, args); err != nil {
			return err
		}
		cfg.UseColors = false
		return nil
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, stores, newFetcher)
	},
}
