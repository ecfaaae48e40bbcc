package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zen-systems/boardroom/pkg/cache"
	"github.com/zen-systems/boardroom/pkg/config"
	"github.com/zen-systems/boardroom/pkg/memory"
	"github.com/zen-systems/boardroom/pkg/orchestrator"
)

type askOptions struct {
	noMemory   bool
	jsonOut    bool
	raw        bool
	strategy   string
	routing    string
	noResearch bool
}

func (o *askOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.strategy, "strategy", "", "provider strategy: primary, secondary, hybrid")
	cmd.Flags().StringVar(&o.routing, "routing", "", "routing mode: rules, semantic, classifier")
	cmd.Flags().BoolVar(&o.noResearch, "no-research", false, "skip the academic research stage")
	cmd.Flags().BoolVar(&o.raw, "raw", false, "print the recommendation without markdown rendering")
}

func (o *askOptions) build(ctx context.Context) (*orchestrator.Orchestrator, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.noResearch {
		cfg.Research.Enabled = false
	}
	if err := applyOverrides(cfg, o.strategy, o.routing); err != nil {
		return nil, nil, err
	}
	orch, err := orchestrator.FromConfig(ctx, cfg, newLogger(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build orchestrator: %w", err)
	}
	return orch, cfg, nil
}

func askCmd() *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Ask the board a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orch, _, err := opts.build(ctx)
			if err != nil {
				return err
			}
			defer orch.Close()

			res, err := orch.Orchestrate(ctx, strings.Join(args, " "), !opts.noMemory)
			if err != nil {
				return fmt.Errorf("orchestration failed: %w", err)
			}

			if opts.jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printResult(os.Stdout, res, opts.raw)
			printCacheStats(os.Stdout, orch.CacheStats())
			return nil
		},
	}

	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.noMemory, "no-memory", false, "do not use or record conversation memory")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print the full result as JSON")

	return cmd
}

func chatCmd() *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive session with shared conversation memory",
		Long: `Starts a prompt loop. Every question sees the previous turns.

Commands: "history" prints the conversation, "clear" forgets it,
"exit" or "quit" ends the session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orch, _, err := opts.build(ctx)
			if err != nil {
				return err
			}
			defer orch.Close()

			return chatLoop(ctx, orch, os.Stdin, os.Stdout, opts.raw)
		},
	}

	opts.bind(cmd)
	return cmd
}

// chatSession is the subset of the orchestrator the prompt loop drives.
type chatSession interface {
	Orchestrate(ctx context.Context, query string, useMemory bool) (*orchestrator.Result, error)
	History() []memory.Message
	ClearMemory()
}

func chatLoop(ctx context.Context, orch chatSession, in io.Reader, out io.Writer, raw bool) error {
	prompt := color.New(color.FgCyan, color.Bold)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		prompt.Fprint(out, "boardroom> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "clear":
			orch.ClearMemory()
			color.New(color.FgGreen).Fprintln(out, "Conversation memory cleared successfully")
			continue
		case "history":
			for _, m := range orch.History() {
				fmt.Fprintf(out, "%s %s\n", color.New(color.Bold).Sprintf("%s:", strings.ToUpper(m.Role)), m.Content)
			}
			continue
		}

		res, err := orch.Orchestrate(ctx, line, true)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			color.New(color.FgRed).Fprintf(out, "error: %v\n", err)
			continue
		}
		printResult(out, res, raw)
	}
}

func printResult(out io.Writer, res *orchestrator.Result, raw bool) {
	header := color.New(color.FgCyan, color.Bold)
	header.Fprintf(out, "Workers consulted: %s\n", formatList(res.AgentsConsulted))
	if res.ResearchPapers > 0 {
		fmt.Fprintf(out, "Research papers: %d\n", res.ResearchPapers)
	}

	for _, id := range res.AgentsConsulted {
		if strings.HasPrefix(res.DetailedFindings[id], "Error:") {
			color.New(color.FgYellow).Fprintf(out, "  %s failed: %s\n", id, strings.TrimSpace(strings.TrimPrefix(res.DetailedFindings[id], "Error:")))
		}
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, renderMarkdown(res.Recommendation, raw))
}

// renderMarkdown renders through glamour when writing to a terminal.
func renderMarkdown(text string, raw bool) string {
	if raw || color.NoColor {
		return text
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return rendered
}

func printCacheStats(out io.Writer, s cache.Stats) {
	if !s.Enabled {
		return
	}
	dim := color.New(color.Faint)
	dim.Fprintf(out, "cache: %s, %d hits / %d requests (%.1f%%)\n", s.Backend, s.Hits, s.TotalRequests, s.HitRatePercent)
}
