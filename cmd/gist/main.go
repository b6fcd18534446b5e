// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/gist"
	"github.com/poiesic/gist/config"
	"github.com/poiesic/gist/core"
	"github.com/poiesic/gist/extract"
	"github.com/poiesic/gist/mcp"
	"github.com/poiesic/gist/pipeline"
	"github.com/urfave/cli/v2"
)

const version = "0.1.0"

const configKey = "config"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	workspaceFlag := &cli.StringFlag{
		Name:     "workspace",
		Aliases:  []string{"w"},
		Usage:    "Workspace ID",
		Required: true,
	}
	ownerFlag := &cli.StringFlag{
		Name:  "owner",
		Usage: "Workspace owner",
		Value: "local",
	}

	return &cli.App{
		Name:    "gist",
		Usage:   "Answer questions from documents, workspaces, web search and videos",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML config file",
				EnvVars: []string{"GIST_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides storage.path)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print results as JSON",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer a question about one file",
				ArgsUsage: "FILE",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "question",
						Aliases:  []string{"q"},
						Usage:    "Question to answer",
						Required: true,
					},
				},
			},
			{
				Name:  "workspace",
				Usage: "Manage workspaces and ask questions across their documents",
				Subcommands: []*cli.Command{
					{
						Name:   "create",
						Usage:  "Create a workspace and print its ID",
						Action: workspaceCreateCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "name",
								Aliases:  []string{"n"},
								Usage:    "Workspace name",
								Required: true,
							},
							ownerFlag,
						},
					},
					{
						Name:   "list",
						Usage:  "List workspaces",
						Action: workspaceListCommand,
						Flags:  []cli.Flag{ownerFlag},
					},
					{
						Name:      "add",
						Usage:     "Extract files and store them in a workspace",
						ArgsUsage: "FILE...",
						Action:    workspaceAddCommand,
						Flags:     []cli.Flag{workspaceFlag},
					},
					{
						Name:   "docs",
						Usage:  "List the documents of a workspace",
						Action: workspaceDocsCommand,
						Flags:  []cli.Flag{workspaceFlag},
					},
					{
						Name:   "ask",
						Usage:  "Answer a query from every document in a workspace",
						Action: workspaceAskCommand,
						Flags: []cli.Flag{
							workspaceFlag,
							&cli.StringFlag{
								Name:     "query",
								Aliases:  []string{"q"},
								Usage:    "Query to answer",
								Required: true,
							},
						},
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search the web and synthesize a sourced answer",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
			},
			{
				Name:   "summarize",
				Usage:  "Summarize a YouTube video into a summary and study notes",
				Action: summarizeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "url",
						Aliases: []string{"u"},
						Usage:   "YouTube URL or video ID",
					},
					&cli.StringFlag{
						Name:    "transcript",
						Aliases: []string{"t"},
						Usage:   "Path to a transcript file used instead of fetching captions",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the gist tools over MCP stdio",
				Action: mcpCommand,
			},
		},
	}
}

// setupLogger loads the configuration, applies the global flag overrides
// and installs the default logger.
func setupLogger(c *cli.Context) error {
	cfg, err := config.LoadFromFiles(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("db") {
		cfg.Storage.Path = c.String("db")
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", cfg.LogLevel)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func loadedConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.NewDefaultConfig()
}

// withService opens the service for the duration of fn. The context is
// cancelled on interrupt.
func withService(c *cli.Context, fn func(ctx context.Context, s *gist.Service) error) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	s, err := gist.Open(loadedConfig(c))
	if err != nil {
		return fmt.Errorf("failed to open gist: %w", err)
	}
	defer s.Close()

	return fn(ctx, s)
}

func askCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one file is required")
	}
	path := c.Args().First()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	format, err := extract.DetectFormat(path, "")
	if err != nil {
		return err
	}

	return withService(c, func(ctx context.Context, s *gist.Service) error {
		result, err := s.Pipeline().RunDocumentQA(ctx, pipeline.DocumentQARequest{
			Caller:   caller(),
			File:     core.RawInput{Data: data, Filename: filepath.Base(path), Format: format},
			Question: c.String("question"),
		})
		if err != nil {
			return err
		}
		return printResult(c, result)
	})
}

func workspaceCreateCommand(c *cli.Context) error {
	return withService(c, func(ctx context.Context, s *gist.Service) error {
		ws, err := s.CreateWorkspace(ctx, c.String("name"), c.String("owner"))
		if err != nil {
			return err
		}
		if c.Bool("json") {
			return printJSON(c, ws)
		}
		fmt.Fprintln(c.App.Writer, ws.ID)
		return nil
	})
}

func workspaceListCommand(c *cli.Context) error {
	return withService(c, func(ctx context.Context, s *gist.Service) error {
		list, err := s.ListWorkspaces(ctx, c.String("owner"))
		if err != nil {
			return err
		}
		if c.Bool("json") {
			return printJSON(c, list)
		}
		for _, ws := range list {
			fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n", ws.ID, ws.Name, ws.InsertedAt.Format(time.RFC3339))
		}
		return nil
	})
}

func workspaceAddCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	return withService(c, func(ctx context.Context, s *gist.Service) error {
		report, err := s.Ingestion().IngestFiles(ctx, c.String("workspace"), c.Args().Slice(), c.App.ErrWriter)
		if err != nil {
			return err
		}
		for _, doc := range report.Added {
			fmt.Fprintf(c.App.Writer, "added\t%s\t%d\n", doc.Name, doc.Id)
		}
		for _, failure := range report.Failed {
			fmt.Fprintf(c.App.Writer, "failed\t%s\t%v\n", failure.Path, failure.Err)
		}
		if len(report.Added) == 0 {
			return fmt.Errorf("no files were added")
		}
		return nil
	})
}

func workspaceDocsCommand(c *cli.Context) error {
	return withService(c, func(ctx context.Context, s *gist.Service) error {
		docs, err := s.Documents(ctx, c.String("workspace"))
		if err != nil {
			return err
		}
		for _, doc := range docs {
			marker := ""
			if doc.Truncated {
				marker = " (truncated)"
			}
			fmt.Fprintf(c.App.Writer, "%d\t%s\t%d chars%s\n", doc.Id, doc.Name, len(doc.Content), marker)
		}
		return nil
	})
}

func workspaceAskCommand(c *cli.Context) error {
	return withService(c, func(ctx context.Context, s *gist.Service) error {
		result, err := s.Pipeline().AskWorkspace(ctx, pipeline.AskWorkspaceRequest{
			Caller:      caller(),
			WorkspaceID: c.String("workspace"),
			Query:       c.String("query"),
		})
		if err != nil {
			return err
		}
		return printResult(c, result)
	})
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if core.IsBlank(query) {
		return fmt.Errorf("a query is required")
	}

	return withService(c, func(ctx context.Context, s *gist.Service) error {
		result, err := s.Pipeline().Search(ctx, pipeline.SearchRequest{Caller: caller(), Query: query})
		if err != nil {
			return err
		}
		return printResult(c, result)
	})
}

func summarizeCommand(c *cli.Context) error {
	var manual string
	if path := c.String("transcript"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		manual = string(data)
	}
	if c.String("url") == "" && manual == "" {
		return fmt.Errorf("either --url or --transcript is required")
	}

	return withService(c, func(ctx context.Context, s *gist.Service) error {
		result, err := s.Pipeline().RunVideoSummary(ctx, pipeline.VideoSummaryRequest{
			Caller:           caller(),
			VideoURL:         c.String("url"),
			ManualTranscript: manual,
		})
		if err != nil {
			return err
		}

		summary := result.VideoSummary()
		if c.Bool("json") {
			return printJSON(c, summary)
		}
		fmt.Fprintln(c.App.Writer, summary.Summary)
		if len(summary.Notes) > 0 {
			fmt.Fprintln(c.App.Writer)
			for _, note := range summary.Notes {
				fmt.Fprintf(c.App.Writer, "- %s\n", note)
			}
		}
		return nil
	})
}

func mcpCommand(c *cli.Context) error {
	return withService(c, func(_ context.Context, s *gist.Service) error {
		return mcp.Run(s.Pipeline(), version, slog.Default())
	})
}

func caller() pipeline.Caller {
	return pipeline.Caller{ID: os.Getenv("USER"), Role: "cli"}
}

func printResult(c *cli.Context, result *core.SynthesisResult) error {
	if c.Bool("json") {
		return printJSON(c, result)
	}

	w := c.App.Writer
	fmt.Fprintln(w, result.AnswerText)
	if len(result.Sources) > 0 && !result.Informational {
		fmt.Fprintf(w, "\nSources: %s\n", strings.Join(result.Sources, ", "))
	}
	for _, link := range result.Links {
		fmt.Fprintf(w, "  %s <%s>\n", link.Title, link.URL)
	}
	return nil
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
