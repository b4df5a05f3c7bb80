package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/difflens/internal/log"
	"github.com/zjrosen/difflens/internal/panesync"
	"github.com/zjrosen/difflens/internal/richtext"
)

var scrollmapSyncCmd = &cobra.Command{
	Use:   "sync <input>",
	Short: "Replay scroll events against a pair of synchronized panes",
	Long: `Read scroll events from stdin, one per line, and print the move applied to
the opposite pane for each of them.

  left 0.25     the left pane scrolled to 25%
  right 0.8     the right pane scrolled to 80%
  unlock        stop driving the other pane
  lock left     resume, re-aligning the right pane to the left one

Each move is fed back as the moved pane's own scroll event, the way a real
view reports it, and is recognized as an echo.`,
	Args: cobra.ExactArgs(1),
	RunE: runScrollmapSync,
}

func init() {
	scrollmapCmd.AddCommand(scrollmapSyncCmd)
}

func runScrollmapSync(cmd *cobra.Command, args []string) error {
	_, m, err := loadMap(cmd, args[0])
	if err != nil {
		return err
	}

	s := panesync.New(m)
	out := cmd.OutOrStdout()
	sc := bufio.NewScanner(cmd.InOrStdin())
	for line := 1; sc.Scan(); line++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		upd, moved, err := applySyncEvent(s, fields)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if !moved {
			_, _ = fmt.Fprintf(out, "%s\n", syncState(s))
			continue
		}
		if err := printSyncUpdate(out, upd); err != nil {
			return err
		}
		// The moved pane reports its new position back.
		if _, again := s.Scroll(upd.Side, upd.Position); again {
			log.Warn(log.CatScrollMap, "Echo was not recognized", "side", upd.Side, "pos", upd.Position)
		}
	}
	return sc.Err()
}

func applySyncEvent(s *panesync.Sync, fields []string) (panesync.Update, bool, error) {
	switch fields[0] {
	case "unlock":
		upd, moved := s.SetLocked(false, richtext.Left)
		return upd, moved, nil
	case "lock":
		from := richtext.Left
		if len(fields) > 1 {
			side, err := richtext.ParseSide(fields[1])
			if err != nil {
				return panesync.Update{}, false, err
			}
			from = side
		}
		upd, moved := s.SetLocked(true, from)
		return upd, moved, nil
	}

	if len(fields) != 2 {
		return panesync.Update{}, false, fmt.Errorf("want \"<side> <pos>\", got %q", strings.Join(fields, " "))
	}
	side, err := richtext.ParseSide(fields[0])
	if err != nil {
		return panesync.Update{}, false, err
	}
	pos, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return panesync.Update{}, false, fmt.Errorf("parsing position: %w", err)
	}
	upd, moved := s.Scroll(side, pos)
	return upd, moved, nil
}

func printSyncUpdate(w io.Writer, u panesync.Update) error {
	_, err := fmt.Fprintf(w, "-> %s %.6f (page %d)\n", u.Side, u.Position, u.Page+1)
	return err
}

func syncState(s *panesync.Sync) string {
	state := "locked"
	if !s.Locked() {
		state = "unlocked"
	}
	return fmt.Sprintf("   left %.6f right %.6f %s",
		s.Position(richtext.Left), s.Position(richtext.Right), state)
}
