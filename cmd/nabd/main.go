// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

// Package main implements the Nabd CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jllopis/nabd/pkg/config"
)

// version is stamped at build time.
var version = "dev"

type globalFlags struct {
	ConfigPath string
	Sets       []string
	JSON       bool
}

// configArgs renders the flags in the form config.LoadWithCLI parses.
func (g *globalFlags) configArgs() []string {
	var args []string
	if g.ConfigPath != "" {
		args = append(args, "--config", g.ConfigPath)
	}
	for _, set := range g.Sets {
		args = append(args, "--set", set)
	}
	return args
}

func (g *globalFlags) load() (*config.Config, error) {
	cfg, err := config.LoadWithCLI(g.configArgs())
	if err != nil {
		return nil, NewConfigError(err, g.ConfigPath)
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flags := &globalFlags{}
	if err := newRootCmd(flags).ExecuteContext(ctx); err != nil {
		printError(err, flags.JSON)
		os.Exit(1)
	}
}

func newRootCmd(flags *globalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:           "nabd",
		Short:         "Nabd - an Arabic assistant with skills, planning and retrieval",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "path to a YAML config file")
	pf.StringArrayVar(&flags.Sets, "set", nil, "override a config key (key=value, repeatable)")
	pf.BoolVar(&flags.JSON, "json", false, "print errors as JSON")

	root.AddCommand(
		newServeCmd(flags),
		newChatCmd(flags),
		newPlanCmd(flags),
		newSkillsCmd(flags),
		newRAGCmd(flags),
		newMCPCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return root
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
}

func writeRow(writer *tabwriter.Writer, cols ...string) {
	for i, col := range cols {
		cols[i] = normalizeCell(col)
	}
	fmt.Fprintln(writer, strings.Join(cols, "\t"))
}

func normalizeCell(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return strings.Join(strings.Fields(value), " ")
}
