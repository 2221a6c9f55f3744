// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jllopis/nabd/pkg/errors"
	"github.com/jllopis/nabd/pkg/mcp"
	"github.com/jllopis/nabd/pkg/memory"
	"github.com/jllopis/nabd/pkg/orchestrator"
	"github.com/jllopis/nabd/pkg/prompts"
	"github.com/jllopis/nabd/pkg/server"
	"github.com/jllopis/nabd/pkg/skills"
	"github.com/jllopis/nabd/pkg/telemetry"
)

// withApp loads the configuration, builds the app and runs fn with it.
func withApp(cmd *cobra.Command, flags *globalFlags, fn func(a *app) error) error {
	cfg, err := flags.load()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(a *app) error {
				ctx := cmd.Context()
				store, err := a.traceStore(ctx)
				if err != nil {
					return err
				}
				orch, err := a.newOrchestrator(ctx, store)
				if err != nil {
					return err
				}
				conversations, err := a.conversations()
				if err != nil {
					return err
				}
				if a.cfg.Skills.Watch {
					watcher := skills.NewWatcher(a.registry, telemetry.Component("skills"))
					go func() {
						if err := watcher.Start(ctx); err != nil {
							a.logger.Warn("skills.watch.failed", "error", err.Error())
						}
					}()
				}

				srv := server.New(server.Deps{
					Assistant:     orch,
					Conversations: conversations,
					Traces:        store,
					Knowledge:     a.retriever,
					Skills:        a.registry,
					ToolsPrompt:   a.runner.PromptText,
					Upstreams:     a.handlers.BreakerStates,
				}, server.Config{
					Addr:          a.cfg.Server.Addr,
					DebugToken:    a.cfg.Server.DebugToken,
					SecureCookies: a.cfg.Server.SecureCookies,
				}, telemetry.Component("server"))
				return srv.Run(ctx)
			})
		},
	}
}

func newChatCmd(flags *globalFlags) *cobra.Command {
	var (
		showTrace      bool
		conversationID string
		systemPrompt   string
		profileID      string
	)
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Run one assistant turn and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.TrimSpace(strings.Join(args, " "))
			prompt, err := prompts.Resolve(systemPrompt, profileID)
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(a *app) error {
				ctx := cmd.Context()
				store, err := a.traceStore(ctx)
				if err != nil {
					return err
				}
				orch, err := a.newOrchestrator(ctx, store)
				if err != nil {
					return err
				}
				conversations, err := a.conversations()
				if err != nil {
					return err
				}

				history, err := conversations.GetMessages(ctx, conversationID)
				if err != nil {
					return err
				}
				res, err := orch.Reply(ctx, orchestrator.Request{
					ConversationID: conversationID,
					Content:        content,
					SystemPrompt:   prompt,
					History:        memory.Turns(history),
				})
				if err != nil {
					return err
				}
				for _, msg := range []memory.ConversationMessage{{Role: "user", Content: content}, {Role: "assistant", Content: res.Content}} {
					if _, err := conversations.AddMessage(ctx, conversationID, msg); err != nil {
						return err
					}
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, res.Content)
				if showTrace {
					fmt.Fprintln(out)
					return writeJSON(out, res.Trace)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&showTrace, "trace", false, "print the orchestration trace after the reply")
	cmd.Flags().StringVar(&conversationID, "conversation", "cli", "conversation id used for history")
	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "extra system instructions")
	cmd.Flags().StringVar(&profileID, "profile", "", "prompt profile id (see the prompt-profiles endpoint)")
	return cmd
}

func newPlanCmd(flags *globalFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "plan <message>",
		Short: "Print the execution plan for a message without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "json" && output != "yaml" {
				return NewInvalidArgumentError("--output", fmt.Sprintf("unknown format %q, expected json or yaml", output))
			}
			return withApp(cmd, flags, func(a *app) error {
				plan := a.planner.Build(cmd.Context(), strings.Join(args, " "))
				if output == "yaml" {
					return writeYAML(cmd.OutOrStdout(), plan)
				}
				return writeJSON(cmd.OutOrStdout(), plan)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	return cmd
}

func newSkillsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "Inspect the skill catalog",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List discovered skills",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, flags, func(a *app) error {
					w := newTabWriter(cmd.OutOrStdout())
					writeRow(w, "ID", "FORMAT", "EXECUTABLE", "DESCRIPTION")
					for _, s := range a.registry.List() {
						writeRow(w, s.ID, string(s.Format), strconv.FormatBool(s.Executable), s.Description)
					}
					return w.Flush()
				})
			},
		},
		&cobra.Command{
			Use:   "validate [dir]",
			Short: "Validate every skill.json and SKILL.md under a directory",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				dir := ""
				if len(args) == 1 {
					dir = args[0]
				} else {
					cfg, err := flags.load()
					if err != nil {
						return err
					}
					dir = cfg.Skills.Dir
				}
				return validateSkills(cmd.OutOrStdout(), dir)
			},
		},
		&cobra.Command{
			Use:   "prompt",
			Short: "Print the skill catalog and tool list as sent to the model",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, flags, func(a *app) error {
					out := cmd.OutOrStdout()
					fmt.Fprintln(out, skills.AvailableSkillsXML(a.registry.List()))
					fmt.Fprintln(out)
					fmt.Fprintln(out, a.runner.PromptText())
					return nil
				})
			},
		},
	)
	return cmd
}

// validateSkills checks each skill directory under dir and reports one line
// per file. Any invalid file fails the command.
func validateSkills(out io.Writer, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.New(errors.CodeDiscovery, "cannot read skills directory", err).WithContext("dir", dir)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	checked, failed := 0, 0
	report := func(path, id string, err error) {
		checked++
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL  %s: %s\n", path, errors.UserMessage(err))
			return
		}
		fmt.Fprintf(out, "ok    %s (%s)\n", path, id)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		base := filepath.Join(dir, entry.Name())
		if path := filepath.Join(base, "skill.json"); fileExists(path) {
			m, err := skills.LoadManifest(path)
			id := ""
			if m != nil {
				id = m.ID
			}
			report(path, id, err)
		}
		if path := filepath.Join(base, "SKILL.md"); fileExists(path) {
			md, err := skills.LoadSkillMarkdown(path)
			id := ""
			if md != nil {
				id = md.Name
			}
			report(path, id, err)
		}
	}
	fmt.Fprintf(out, "%d checked, %d invalid\n", checked, failed)
	if failed > 0 {
		return errors.New(errors.CodeInvalidInput, fmt.Sprintf("%d invalid skill files", failed), nil)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func newRAGCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rag",
		Short: "Manage the retrieval documents",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List indexed documents",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, flags, func(a *app) error {
					r, err := a.knowledge(cmd.Context())
					if err != nil {
						return err
					}
					w := newTabWriter(cmd.OutOrStdout())
					writeRow(w, "ID", "TITLE", "SOURCE")
					for _, d := range r.List(cmd.Context()) {
						writeRow(w, d.ID, d.Title, d.Source)
					}
					return w.Flush()
				})
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Restore the built-in documents",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, flags, func(a *app) error {
					r, err := a.knowledge(cmd.Context())
					if err != nil {
						return err
					}
					seed := memory.SeedDocuments()
					if err := r.Upsert(cmd.Context(), seed); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "seeded %d documents, %d indexed\n", len(seed), len(r.List(cmd.Context())))
					return nil
				})
			},
		},
	)
	return cmd
}

func newMCPCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the executable skills as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(a *app) error {
				s, err := mcp.NewServer("nabd", version, a.registry, a.executor, telemetry.Component("mcp"))
				if err != nil {
					return err
				}
				return s.ServeStdio()
			})
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(payload))
	return err
}

// writeYAML renders v through its JSON form so field names match the JSON
// output, then drops the flow and quoting styles JSON leaves on every node.
func writeYAML(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(payload, &node); err != nil {
		return err
	}
	blockStyle(&node)
	out, err := yaml.Marshal(&node)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
