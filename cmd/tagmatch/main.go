package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tagmatch/cmd/tagmatch/check"
	"github.com/walteh/tagmatch/cmd/tagmatch/classify"
	"github.com/walteh/tagmatch/cmd/tagmatch/internal/cli"
	"github.com/walteh/tagmatch/cmd/tagmatch/match"
	"github.com/walteh/tagmatch/cmd/tagmatch/ns"
	serve_lsp "github.com/walteh/tagmatch/cmd/tagmatch/serve-lsp"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var (
		logLevel string
		pretty   bool
	)

	rootCmd := &cobra.Command{
		Use:           "tagmatch",
		Short:         "Find matching tags and namespace prefixes in XML and XAML",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human readable logs")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logger, err := cli.NewLogger(os.Stderr, logLevel, pretty)
		if err != nil {
			return err
		}
		cmd.SetContext(logger.WithContext(cmd.Context()))
		return nil
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)

	rootCmd.AddCommand(serve_lsp.NewServeLSPCommand(rootCmd.Version))
	rootCmd.AddCommand(check.NewCheckCommand())
	rootCmd.AddCommand(match.NewMatchCommand())
	rootCmd.AddCommand(classify.NewClassifyCommand())
	rootCmd.AddCommand(ns.NewNSCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
