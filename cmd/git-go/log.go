package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Nivl/git-go/ginternals"
	"github.com/Nivl/git-go/ginternals/object"
	"github.com/Nivl/git-go/internal/errutil"
	"github.com/spf13/cobra"
)

// abbrevLen is how many hex characters of a commit id "git log"
// displays on a Merge: line.
const abbrevLen = 7

func newLogCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log [revision]",
		Short: "Show the first-parent commit history",
		Args:  cobra.MaximumNArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		rev := ginternals.Head
		if len(args) > 0 {
			rev = args[0]
		}
		return logCmd(cmd.OutOrStdout(), cfg, rev)
	}
	return cmd
}

func logCmd(out io.Writer, cfg *globalFlags, rev string) (err error) {
	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	return r.Log(rev, func(c *object.Commit) error {
		fmt.Fprintf(out, "commit %s\n", c.ID().String())
		if c.IsMerge() {
			fmt.Fprintf(out, "Merge: %s\n", formatParents(c.ParentIDs()))
		}
		fmt.Fprintf(out, "Author: %s\n", c.Author().String())
		fmt.Fprintln(out, "")
		for _, line := range splitLines(c.Message()) {
			fmt.Fprintf(out, "    %s\n", line)
		}
		fmt.Fprintln(out, "")
		return nil
	})
}

// formatParents abbreviates a list of commit ids, the way "git log"
// displays a merge's parents.
func formatParents(ids []ginternals.Oid) string {
	short := make([]string, len(ids))
	for i, id := range ids {
		short[i] = id.Abbrev(abbrevLen)
	}
	return strings.Join(short, " ")
}

// splitLines splits a commit message into lines without a trailing
// empty line when the message ends with a newline.
func splitLines(msg string) []string {
	lines := []string{}
	start := 0
	for i := 0; i < len(msg); i++ {
		if msg[i] == '\n' {
			lines = append(lines, msg[start:i])
			start = i + 1
		}
	}
	if start < len(msg) {
		lines = append(lines, msg[start:])
	}
	return lines
}
