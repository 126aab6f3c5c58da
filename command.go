package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shandysiswandi/gomultipart/internal/app"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gomultipart",
		Short:         "Chunked upload coordinator with voice signaling",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	serve := newServeCommand()
	root.AddCommand(serve, newVersionCommand())

	// running the binary without a subcommand serves
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func newServeCommand() *cobra.Command {
	var (
		configPath      string
		shutdownTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application := app.New(configPath) // Initialize the application
			wait := application.Start()        // Start the application and wait for the termination signal
			<-wait                             // Wait for the application to receive a termination signal

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			application.Stop(ctx) // Stop the application gracefully

			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "graceful shutdown timeout")

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
