// Package report writes the output documents for a completed run:
// the merged transcript, meeting minutes, and action items, each as a
// Markdown file with a small metadata header. An optional external
// command (pandoc, wkhtmltopdf or similar) converts each document
// after it is written.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/minutelabs/minuted/internal/config"
	"github.com/minutelabs/minuted/internal/llm"
)

// Documents lists the files written for one run. Paths are empty for
// documents that were skipped.
type Documents struct {
	Transcript  string
	Minutes     string
	ActionItems string
}

type Generator struct {
	cfg        config.ReportConfig
	convertCmd []string
	logger     *slog.Logger
	clock      func() time.Time
}

func NewGenerator(cfg config.ReportConfig, logger *slog.Logger) (*Generator, error) {
	g := &Generator{
		cfg:    cfg,
		logger: logger.With("component", "report"),
		clock:  time.Now,
	}
	if cfg.ConvertCommand != "" {
		args, err := shellwords.NewParser().Parse(cfg.ConvertCommand)
		if err != nil {
			return nil, fmt.Errorf("parse convert command: %w", err)
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("convert command is empty")
		}
		g.convertCmd = args
	}
	return g, nil
}

// Generate writes the run's documents. The transcript is always
// written; minutes and action items are skipped when their analysis
// section failed. Conversion failures are logged and do not fail the
// run.
func (g *Generator) Generate(ctx context.Context, runID, transcript string, analysis llm.Analysis) (Documents, error) {
	if err := os.MkdirAll(g.cfg.OutputDir, 0o755); err != nil {
		return Documents{}, fmt.Errorf("create output dir: %w", err)
	}

	now := g.clock()
	stamp := now.Format("20060102_150405")
	var docs Documents

	path := filepath.Join(g.cfg.OutputDir, fmt.Sprintf("transcript_%s.md", stamp))
	if err := g.writeDocument(ctx, path, "Meeting Transcript", runID, now, transcript); err != nil {
		return docs, err
	}
	docs.Transcript = path

	if analysis.Minutes.Err == nil && analysis.Minutes.Content != "" {
		path := filepath.Join(g.cfg.OutputDir, fmt.Sprintf("meeting_minutes_%s.md", stamp))
		if err := g.writeDocument(ctx, path, "Meeting Minutes", runID, now, analysis.Minutes.Content); err != nil {
			return docs, err
		}
		docs.Minutes = path
	} else {
		g.logger.Warn("skipping meeting minutes document", "error", analysis.Minutes.Err)
	}

	if analysis.ActionItems.Err == nil && analysis.ActionItems.Content != "" {
		path := filepath.Join(g.cfg.OutputDir, fmt.Sprintf("action_items_%s.md", stamp))
		if err := g.writeDocument(ctx, path, "Action Items", runID, now, analysis.ActionItems.Content); err != nil {
			return docs, err
		}
		docs.ActionItems = path
	} else {
		g.logger.Warn("skipping action items document", "error", analysis.ActionItems.Err)
	}

	return docs, nil
}

func (g *Generator) writeDocument(ctx context.Context, path, title, runID string, now time.Time, body string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- Run: %s\n", runID)
	fmt.Fprintf(&b, "- Generated: %s\n\n", now.Format("January 2, 2006 at 3:04 PM"))
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	g.logger.Info("document written", "path", path)

	g.convert(ctx, path)
	return nil
}

func (g *Generator) convert(ctx context.Context, path string) {
	if len(g.convertCmd) == 0 {
		return
	}
	args := append([]string{}, g.convertCmd[1:]...)
	args = append(args, path)
	cmd := exec.CommandContext(ctx, g.convertCmd[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		g.logger.Warn("document conversion failed", "path", path, "error", err, "output", string(out))
	}
}
