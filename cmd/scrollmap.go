package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zjrosen/difflens/internal/engine"
	"github.com/zjrosen/difflens/internal/flags"
	"github.com/zjrosen/difflens/internal/input"
	"github.com/zjrosen/difflens/internal/log"
	"github.com/zjrosen/difflens/internal/minimap"
	"github.com/zjrosen/difflens/internal/richtext"
	"github.com/zjrosen/difflens/internal/scrollmap"
	"github.com/zjrosen/difflens/internal/watcher"
	"github.com/zjrosen/difflens/internal/workerpool"
)

var scrollmapCmd = &cobra.Command{
	Use:   "scrollmap",
	Short: "Build and query scroll maps",
	Long: `Build and query the scroll map of a diff input.

An input file (JSON or YAML, picked by extension) holds the per-side diff
chunks and page sizes:

  left:
    images: [{width: 612, height: 792, canvasWidth: 1224, canvasHeight: 1584}]
    chunks: [{id: 1, type: equal, pageIndex: 0, y: [[700, 688]], x: [[[72, 80]]]}]
  right:
    ...
  pageSpacing: 16`,
}

var (
	smPageSpacing float64
	smViaPool     bool
	smSide        string
	smPos         float64
	smJSON        bool
	smRows        int
	smTop         float64
	smVisible     float64
	smColor       bool
)

var scrollmapBuildCmd = &cobra.Command{
	Use:   "build <input>",
	Short: "Print the normalized scroll map as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runScrollmapBuild,
}

var scrollmapQueryCmd = &cobra.Command{
	Use:   "query <input>",
	Short: "Map a position on one side to the other side",
	Example: `  difflens scrollmap query diff.json --side left --pos 0.4
  difflens scrollmap query diff.yaml --side right --pos 1 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runScrollmapQuery,
}

var scrollmapChangesCmd = &cobra.Command{
	Use:   "changes <input>",
	Short: "List the jump-to-change stops, top to bottom",
	Args:  cobra.ExactArgs(1),
	RunE:  runScrollmapChanges,
}

var scrollmapMinimapCmd = &cobra.Command{
	Use:   "minimap <input>",
	Short: "Render change indicator columns for both documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runScrollmapMinimap,
}

var scrollmapWatchCmd = &cobra.Command{
	Use:   "watch <input>",
	Short: "Rebuild the scroll map whenever the input changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runScrollmapWatch,
}

func init() {
	rootCmd.AddCommand(scrollmapCmd)
	scrollmapCmd.AddCommand(scrollmapBuildCmd, scrollmapQueryCmd, scrollmapChangesCmd,
		scrollmapMinimapCmd, scrollmapWatchCmd)

	scrollmapCmd.PersistentFlags().Float64Var(&smPageSpacing, "page-spacing", 0,
		"gap between stacked pages (overrides the input and config)")

	scrollmapBuildCmd.Flags().BoolVar(&smViaPool, "pool", false,
		"build in a worker-pool worker instead of in-process")

	scrollmapQueryCmd.Flags().StringVar(&smSide, "side", "left", "side the position is on (left or right)")
	scrollmapQueryCmd.Flags().Float64Var(&smPos, "pos", 0, "normalized position in [0, 1]")
	scrollmapQueryCmd.Flags().BoolVar(&smJSON, "json", false, "print JSON")

	scrollmapChangesCmd.Flags().BoolVar(&smJSON, "json", false, "print JSON")

	scrollmapMinimapCmd.Flags().IntVar(&smRows, "rows", 20, "rows per column")
	scrollmapMinimapCmd.Flags().Float64Var(&smTop, "top", 0, "left viewport top, normalized")
	scrollmapMinimapCmd.Flags().Float64Var(&smVisible, "visible", 0, "left viewport height, normalized (0 hides the thumb)")
	scrollmapMinimapCmd.Flags().BoolVar(&smColor, "color", false, "colorize the columns")
}

// loadInput reads the input file and applies the page spacing override.
func loadInput(cmd *cobra.Command, path string) (scrollmap.Input, error) {
	in, err := input.Load(path)
	if err != nil {
		return scrollmap.Input{}, err
	}
	in.PageSpacing = pageSpacing(in, smPageSpacing, cmd.Flags().Changed("page-spacing"))
	return in, nil
}

func loadMap(cmd *cobra.Command, path string) (scrollmap.Input, *scrollmap.ScrollMap, error) {
	in, err := loadInput(cmd, path)
	if err != nil {
		return scrollmap.Input{}, nil, err
	}
	return in, newCache().Get(cmd.Context(), in), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runScrollmapBuild(cmd *cobra.Command, args []string) error {
	in, err := loadInput(cmd, args[0])
	if err != nil {
		return err
	}

	var m *scrollmap.ScrollMap
	if smViaPool {
		ctx := cmd.Context()
		p, err := newPool(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = p.Terminate() }()

		built, err := workerpool.Call[scrollmap.ScrollMap](ctx, p, engine.FnBuildScrollMap, in)
		if err != nil {
			return fmt.Errorf("building scroll map: %w", err)
		}
		m = &built
	} else {
		m = newCache().Get(cmd.Context(), in)
	}

	return writeJSON(cmd.OutOrStdout(), m)
}

type queryResult struct {
	From    richtext.Side `json:"from"`
	Pos     float64       `json:"pos"`
	To      richtext.Side `json:"to"`
	Mapped  float64       `json:"mapped"`
	Page    int           `json:"page"`
	Section int           `json:"section"`
}

func runScrollmapQuery(cmd *cobra.Command, args []string) error {
	side, err := richtext.ParseSide(smSide)
	if err != nil {
		return err
	}
	if smPos < 0 || smPos > 1 {
		return fmt.Errorf("--pos must be in [0, 1], got %v", smPos)
	}

	_, m, err := loadMap(cmd, args[0])
	if err != nil {
		return err
	}

	section, ok := scrollmap.SectionAt(m, side, smPos)
	if !ok {
		section = -1
	}
	res := queryResult{
		From:    side,
		Pos:     smPos,
		To:      side.Other(),
		Mapped:  scrollmap.MappedPosition(m, side, smPos),
		Page:    scrollmap.MappedPage(m, side, smPos),
		Section: section,
	}

	if smJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %.6f -> %s %.6f (page %d, section %d)\n",
		res.From, res.Pos, res.To, res.Mapped, res.Page+1, res.Section)
	return err
}

func runScrollmapChanges(cmd *cobra.Command, args []string) error {
	in, m, err := loadMap(cmd, args[0])
	if err != nil {
		return err
	}

	opts := cfg.ScrollMap.Highlight.NotSameOptions(flagRegistry.Enabled(flags.FlagStyleDiff))
	stops := scrollmap.Changes(in, m, opts)

	if smJSON {
		if stops == nil {
			stops = []scrollmap.Stop{}
		}
		return writeJSON(cmd.OutOrStdout(), stops)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tCHUNK\tSIDE\tTYPE\tPAGE\tOFFSET\tMAPPED")
	for i, s := range stops {
		_, _ = fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%d\t%.4f\t%.4f\n",
			i+1, s.ChunkID, s.Side, s.Type, s.Page+1, s.Offset, s.Mapped)
	}
	return tw.Flush()
}

func runScrollmapMinimap(cmd *cobra.Command, args []string) error {
	if smRows <= 0 {
		return fmt.Errorf("--rows must be positive, got %d", smRows)
	}
	_, m, err := loadMap(cmd, args[0])
	if err != nil {
		return err
	}

	out := minimap.Render(m, minimap.Config{
		Rows:    smRows,
		Top:     smTop,
		Visible: smVisible,
		Color:   smColor,
	})
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

func runScrollmapWatch(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := watcher.New(watcher.DefaultConfig(path))
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	onChange, err := w.Start()
	if err != nil {
		return err
	}

	cache := newCache()
	rebuild := func() {
		in, err := loadInput(cmd, path)
		if err != nil {
			// Keep watching; the file may be mid-edit.
			log.ErrorErr(log.CatWatcher, "Reloading input failed", err, "path", path)
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			return
		}
		m := cache.Get(ctx, in)
		printSummary(cmd.OutOrStdout(), m)
	}

	rebuild()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-onChange:
			rebuild()
		}
	}
}

func printSummary(w io.Writer, m *scrollmap.ScrollMap) {
	var changed int
	for _, s := range m.Sections {
		if s.Highlight != scrollmap.HighlightNone {
			changed++
		}
	}
	_, _ = fmt.Fprintf(w, "%d sections, %d changed, heights %.1f / %.1f\n",
		len(m.Sections), changed, m.LeftHeight, m.RightHeight)
}
