package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/difflens/internal/config"
	"github.com/zjrosen/difflens/internal/scrollmap"
)

var replacementInput = filepath.Join("..", "internal", "input", "testdata", "replacement.json")

// resetFlags restores package flag variables between runs; cobra keeps them
// across Execute calls.
func resetFlags() {
	debugFlag, logFile = false, ""
	smPageSpacing, smViaPool, smJSON = 0, false, false
	smSide, smPos = "left", 0
	smRows, smTop, smVisible, smColor = 20, 0, 0, false
	diffFoldWidth, diffCollapse = true, true
	diffTimeout, diffPriority = 0, 0
	diffColor, diffStats = false, false
	configForce = false
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.WriteDefaultConfig(path))
	return path
}

func execute(t *testing.T, configFile string, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, configFile, "", args...)
}

func executeWithInput(t *testing.T, configFile, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", configFile}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScrollmapBuild(t *testing.T) {
	out, err := execute(t, writeConfig(t), "scrollmap", "build", replacementInput)
	require.NoError(t, err)

	var m scrollmap.ScrollMap
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	require.NoError(t, scrollmap.CheckInvariants(&m))
	require.NotEmpty(t, m.Sections)
	require.Greater(t, m.LeftHeight, 0.0)
}

func TestScrollmapBuild_ThroughPoolMatchesInProcess(t *testing.T) {
	cfgPath := writeConfig(t)

	local, err := execute(t, cfgPath, "scrollmap", "build", replacementInput)
	require.NoError(t, err)
	pooled, err := execute(t, cfgPath, "scrollmap", "build", "--pool", replacementInput)
	require.NoError(t, err)

	require.JSONEq(t, local, pooled)
}

func TestScrollmapQuery(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := execute(t, cfgPath, "scrollmap", "query", replacementInput, "--side", "left", "--pos", "1", "--json")
	require.NoError(t, err)

	var res queryResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, "right", res.To.String())
	require.InDelta(t, 1.0, res.Mapped, 1e-9)

	out, err = execute(t, cfgPath, "scrollmap", "query", replacementInput, "--side", "right", "--pos", "0")
	require.NoError(t, err)
	require.Contains(t, out, "right 0.000000 -> left 0.000000")
}

func TestScrollmapQuery_RejectsBadInput(t *testing.T) {
	cfgPath := writeConfig(t)

	_, err := execute(t, cfgPath, "scrollmap", "query", replacementInput, "--side", "middle")
	require.ErrorContains(t, err, "unknown side")

	_, err = execute(t, cfgPath, "scrollmap", "query", replacementInput, "--pos", "1.5")
	require.ErrorContains(t, err, "--pos")
}

func TestScrollmapChanges(t *testing.T) {
	out, err := execute(t, writeConfig(t), "scrollmap", "changes", replacementInput, "--json")
	require.NoError(t, err)

	var stops []scrollmap.Stop
	require.NoError(t, json.Unmarshal([]byte(out), &stops))
	require.Len(t, stops, 2)

	types := []string{string(stops[0].Type), string(stops[1].Type)}
	require.ElementsMatch(t, []string{"remove", "insert"}, types)
}

func TestScrollmapChanges_Table(t *testing.T) {
	out, err := execute(t, writeConfig(t), "scrollmap", "changes", replacementInput)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "CHUNK")
}

func TestScrollmapMinimap(t *testing.T) {
	out, err := execute(t, writeConfig(t), "scrollmap", "minimap", replacementInput, "--rows", "6", "--visible", "0.2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 6)
	require.Contains(t, out, "█")
}

func TestScrollmapSync(t *testing.T) {
	events := "left 1\n# comment\nunlock\nleft 0.5\nlock left\n"
	out, err := executeWithInput(t, writeConfig(t), events, "scrollmap", "sync", replacementInput)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "-> right 1.000000 (page 1)", lines[0])
	require.Contains(t, lines[1], "unlocked")
	require.Contains(t, lines[2], "left 0.500000 right 1.000000 unlocked")
	require.True(t, strings.HasPrefix(lines[3], "-> right "), lines[3])
}

func TestScrollmapSync_BadEvent(t *testing.T) {
	_, err := executeWithInput(t, writeConfig(t), "left\n", "scrollmap", "sync", replacementInput)
	require.ErrorContains(t, err, "line 1")
}

func TestScrollmap_MissingInput(t *testing.T) {
	_, err := execute(t, writeConfig(t), "scrollmap", "build", filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDiff(t *testing.T) {
	dir := t.TempDir()
	left := filepath.Join(dir, "left.txt")
	right := filepath.Join(dir, "right.txt")
	require.NoError(t, os.WriteFile(left, []byte("the quick  brown fox\n"), 0o600))
	require.NoError(t, os.WriteFile(right, []byte("the slow brown fox\n"), 0o600))

	out, err := execute(t, writeConfig(t), "diff", left, right, "--stats")
	require.NoError(t, err)
	require.Contains(t, out, "[-quick-]")
	require.Contains(t, out, "{+slow+}")
	require.Contains(t, out, "completed")
}

func TestDiff_MissingFile(t *testing.T) {
	_, err := execute(t, writeConfig(t), "diff", "nope-left.txt", "nope-right.txt")
	require.ErrorContains(t, err, "nope-left.txt")
}

func TestConfigSetFlag(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := execute(t, cfgPath, "config", "set-flag", "style-diff", "true")
	require.NoError(t, err)
	require.Contains(t, out, "style-diff = true")

	out, err = execute(t, cfgPath, "config", "flags")
	require.NoError(t, err)
	require.Regexp(t, `style-diff\s+true`, out)
	require.Regexp(t, `process-workers\s+false`, out)

	_, err = execute(t, cfgPath, "config", "set-flag", "style-diff", "maybe")
	require.ErrorContains(t, err, "true or false")
}

func TestConfigSetPool(t *testing.T) {
	cfgPath := writeConfig(t)

	_, err := execute(t, cfgPath, "config", "set-pool", "--max-workers", "3", "--timeout", "30s")
	require.NoError(t, err)

	_, err = execute(t, cfgPath, "config", "flags")
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Pool.MaxWorkers)
	require.Equal(t, 30*time.Second, cfg.Pool.Timeout)
	require.Equal(t, 60*time.Second, cfg.Pool.AutoTerminate)
}

func TestConfigInit(t *testing.T) {
	cfgPath := writeConfig(t)
	target := filepath.Join(t.TempDir(), "sub", "config.yaml")

	_, err := execute(t, cfgPath, "config", "init", target)
	require.NoError(t, err)
	require.FileExists(t, target)

	_, err = execute(t, cfgPath, "config", "init", target)
	require.ErrorContains(t, err, "already exists")

	_, err = execute(t, cfgPath, "config", "init", target, "--force")
	require.NoError(t, err)
}

func TestInvalidConfigIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pool:\n  max_workers: -1\n"), 0o600))

	_, err := execute(t, path, "scrollmap", "build", replacementInput)
	require.ErrorContains(t, err, "pool.max_workers")
}
