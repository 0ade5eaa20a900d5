package cli

import (
	"fmt"
	"io"

	"github.com/raphaelgruber/rikkaview/internal/metrics"
)

// printStats displays stage timings and counters collected during a run.
func printStats(w io.Writer, snap metrics.Snapshot) {
	fmt.Fprintf(w, "\nRun Statistics\n")
	fmt.Fprintf(w, "══════════════════════════════\n")
	fmt.Fprintf(w, "Elapsed: %.2f seconds\n", snap.UptimeSeconds)

	for _, st := range snap.Stages() {
		fmt.Fprintf(w, "\n%s:\n", st.Name)
		printOpStats(w, st.Snapshot)
	}

	if names := snap.CounterNames(); len(names) > 0 {
		fmt.Fprintf(w, "\nCounters:\n")
		for _, name := range names {
			fmt.Fprintf(w, "  %-20s %d\n", name, snap.Counters[name])
		}
	}
}

// printOpStats displays timing statistics for a stage.
func printOpStats(w io.Writer, op *metrics.OperationSnapshot) {
	fmt.Fprintf(w, "  Calls: %d, Total: %dms\n", op.Count, op.TotalTimeMs)
	fmt.Fprintf(w, "  Time: avg %.1fms, min %dms, max %dms\n",
		op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
}
