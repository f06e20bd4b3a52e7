package engine

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// DebugSnapshot renders a human-readable per-tick summary of each load's
// state, pool, target and reason, as a small aligned table — grounded on
// the teacher's GFM-table debug output, minus the MQTT publish step, since
// publishing is host-integration's job, not the engine's. cmd/repl prints
// this after every tick; cmd/demo logs its own per-load lines instead.
func DebugSnapshot(res Result) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "LOAD\tSTATE\tPOOL\tTARGET\tREASON")
	for _, l := range res.Loads {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fA\t%s\n", l.ID, l.State, l.Pool, l.TargetCurrent, l.Reason)
	}
	_ = w.Flush()

	return b.String()
}
