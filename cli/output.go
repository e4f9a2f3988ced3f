// ABOUTME: Shared output helpers for CLI commands
// ABOUTME: Table writers, notice printing, and flag parsing conveniences
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/harperreed/agencycrm/models"
	"github.com/harperreed/agencycrm/store"
)

// out receives all command output. Tests swap it for a buffer.
var out io.Writer = os.Stdout

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// printNotice shows the store's current notice, if any, after a command ran.
func printNotice(st *store.Store) {
	n := st.CurrentNotice()
	if n == nil {
		return
	}
	switch n.Level {
	case store.LevelError:
		fmt.Fprintf(out, "✗ %s\n", n.Message)
	case store.LevelWarning:
		fmt.Fprintf(out, "⚠ %s\n", n.Message)
	default:
		fmt.Fprintf(out, "ℹ %s\n", n.Message)
	}
}

// requireID takes the id from --id or the first positional argument.
func requireID(fs *flag.FlagSet, id string) (string, error) {
	if id == "" && fs.NArg() > 0 {
		id = fs.Arg(0)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("--id is required")
	}
	return id, nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func parseOptionalDate(s string) (*models.Date, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// setFlags reports which flags were passed explicitly.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// writeOutput writes to path, or to the command output when path is "-".
func writeOutput(path string, write func(io.Writer) error, what string) error {
	if path == "-" {
		return write(out)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(out, "✓ Exported %s to %s\n", what, path)
	return nil
}
