// epicgrid: hierarchy planning MCP server.
//
// Layers an Epic→Feature→UserStory→Task/Test/Bug hierarchy, version
// propagation and a kanban grid index over a SQLite issue store, and
// exposes it to AI clients over MCP (stdio transport).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/epicgrid/epicgrid/internal/server"
)

var (
	dbFlag     string
	configFlag string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "epicgrid",
		Short: "Planning hierarchy MCP server",
		Long: `epicgrid manages an Epic→Feature→UserStory→Task/Test/Bug issue
hierarchy with version-driven scheduling, and exposes it to AI clients
as an MCP server over stdio.

Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "epicgrid": {
        "command": "epicgrid",
        "args": ["serve"]
      }
    }
  }`,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&dbFlag, "db", "", "SQLite database path (default ~/.epicgrid/epicgrid.db)")
	serveCmd.Flags().StringVar(&configFlag, "config", "", "Hierarchy display-name config (YAML); reloaded on change")
	rootCmd.AddCommand(serveCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("epicgrid v%s\n", server.Version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// Graceful shutdown on interrupt: cancelling ctx stops the config
	// watcher; the stdio server manages its own lifecycle.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	s, cleanup, err := server.New(ctx, server.Options{
		DBPath:          dbFlag,
		HierarchyConfig: configFlag,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	return mcpserver.ServeStdio(s)
}
