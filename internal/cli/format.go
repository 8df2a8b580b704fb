package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/rcliao/docky/internal/memory"
	"github.com/rcliao/docky/internal/rag"
)

func writeAnswer(w io.Writer, a *rag.Answer) {
	fmt.Fprintln(w, a.Answer)
	if len(a.Sources) > 0 {
		pages := make([]string, len(a.Sources))
		for i, s := range a.Sources {
			pages[i] = fmt.Sprintf("%s p.%d", s.Document, s.Page)
		}
		fmt.Fprintf(w, "\nSources: %s\n", strings.Join(pages, ", "))
	}
}

func writeDegraded(w io.Writer, ev memory.DegradedEvent) {
	fmt.Fprintf(w, "warning: summary not updated; %d earlier exchange(s) dropped from memory\n", ev.LostExchangeCount)
}

func writeStats(w io.Writer, s memory.Stats) {
	fmt.Fprintf(w, "exchanges: %d\ntokens: %d\nsummary: %t (%d chars, covers through #%d)\nfolds: %d (degraded %d)\n",
		s.ExchangeCount, s.TotalTokens, s.HasSummary, s.SummaryLength, s.CoversThrough, s.Folds, s.DegradedFolds)
}

func writeSnapshot(w io.Writer, snap memory.Snapshot) {
	if snap.Summary.Empty() {
		fmt.Fprintln(w, "summary: (none)")
	} else {
		fmt.Fprintf(w, "summary: %s\n", snap.Summary.Text)
	}
	for _, ex := range snap.Recent {
		fmt.Fprintf(w, "#%d Q: %s\n   A: %s\n", ex.Seq, ex.Question, ex.Answer)
	}
}
