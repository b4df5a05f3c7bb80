package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zjrosen/difflens/internal/engine"
	"github.com/zjrosen/difflens/internal/log"
	"github.com/zjrosen/difflens/internal/richtext"
	"github.com/zjrosen/difflens/internal/workerpool"
)

var diffCmd = &cobra.Command{
	Use:   "diff <left> <right>",
	Short: "Word-diff two text files through the worker pool",
	Long: `Normalize two text files and print their word-level diff. Normalization,
hashing and the diff itself run as worker-pool invocations, the same way the
viewer runs them off its main thread.`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

var (
	diffFoldWidth bool
	diffCollapse  bool
	diffTimeout   time.Duration
	diffPriority  int
	diffColor     bool
	diffStats     bool
)

var (
	removedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#C4314B", Dark: "#E06C75"}).Strikethrough(true)
	insertedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#98C379"}).Underline(true)
)

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().BoolVar(&diffFoldWidth, "fold-width", true, "fold full-width and half-width variants")
	diffCmd.Flags().BoolVar(&diffCollapse, "collapse-space", true, "collapse runs of whitespace")
	diffCmd.Flags().DurationVar(&diffTimeout, "timeout", 0, "per-invocation timeout (default: pool.timeout)")
	diffCmd.Flags().IntVar(&diffPriority, "priority", 0, "queue priority of the diff (lower runs first)")
	diffCmd.Flags().BoolVar(&diffColor, "color", false, "colorize removed and inserted words")
	diffCmd.Flags().BoolVar(&diffStats, "stats", false, "print content hashes and pool statistics")
}

func runDiff(cmd *cobra.Command, args []string) error {
	texts := make([][]byte, 2)
	for i, path := range args {
		data, err := os.ReadFile(path) //nolint:gosec // G304: user supplied path
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		texts[i] = data
	}

	ctx := cmd.Context()
	p, err := newPool(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = p.Terminate() }()

	var opts []workerpool.Option
	if diffTimeout > 0 {
		opts = append(opts, workerpool.WithTimeout(diffTimeout))
	}

	// Normalize both sides concurrently; either failing cancels the other.
	normalized := make([]string, 2)
	g, gctx := errgroup.WithContext(ctx)
	for i := range texts {
		g.Go(func() error {
			out, err := workerpool.Call[string](gctx, p, engine.FnNormalizeText, engine.NormalizeArgs{
				Text: string(texts[i]),
				Options: engine.NormalizeFlags{
					FoldWidth:          diffFoldWidth,
					CollapseWhitespace: diffCollapse,
				},
			}, opts...)
			if err != nil {
				return fmt.Errorf("normalizing %s: %w", args[i], err)
			}
			normalized[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	d, err := workerpool.Call[engine.TextDiff](ctx, p, engine.FnDiffText,
		engine.DiffArgs{Left: normalized[0], Right: normalized[1]},
		append(opts, workerpool.WithPriority(diffPriority))...)
	if err != nil {
		return fmt.Errorf("diffing: %w", err)
	}

	out := cmd.OutOrStdout()
	if err := printDiff(out, d, diffColor); err != nil {
		return err
	}

	if diffStats {
		return printStats(ctx, out, p, texts)
	}
	return nil
}

// printDiff prints the unified diff: equal text once, removals as [-x-] and
// insertions as {+x+} (or styled when color is set).
func printDiff(w io.Writer, d engine.TextDiff, color bool) error {
	var sb strings.Builder
	for _, seg := range d.Unified {
		if seg.Type == richtext.ChunkEqual {
			sb.WriteString(seg.Text)
			continue
		}
		sb.WriteString(decorate(seg.Text, seg.Type, color))
	}
	if !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteString("\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func decorate(text string, typ richtext.ChunkType, color bool) string {
	if color {
		if typ == richtext.ChunkRemove {
			return removedStyle.Render(text)
		}
		return insertedStyle.Render(text)
	}
	if typ == richtext.ChunkRemove {
		return "[-" + text + "-]"
	}
	return "{+" + text + "+}"
}

func printStats(ctx context.Context, w io.Writer, p *workerpool.Pool, texts [][]byte) error {
	// The buffers move to the worker and come back with the result.
	var back [][]byte
	sums, err := workerpool.Call[[]string](ctx, p, engine.FnHashBytes, nil,
		workerpool.WithTransfer(texts...), workerpool.WithReceived(&back))
	if err != nil {
		return fmt.Errorf("hashing: %w", err)
	}
	log.Debug(log.CatCLI, "Hashed inputs", "buffers", len(back))

	st := p.Stats()
	_, err = fmt.Fprintf(w, "left %s\nright %s\nworkers %s, %d completed, %d failed\n",
		sums[0], sums[1], st.FormatWorkers(), st.Completed, st.Failed)
	return err
}
