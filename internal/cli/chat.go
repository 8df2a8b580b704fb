package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/docky/internal/eventbus"
	"github.com/rcliao/docky/internal/memory"
	"github.com/rcliao/docky/internal/rag"
)

var chatCmd = &cobra.Command{
	Use:   "chat [pdf]",
	Short: "Interactive Q&A session with conversation memory",
	Long: "Start a conversation about the ingested document. When a PDF is given it is ingested first " +
		"(skipped if the collection is already populated). Commands: /stats /summary /reset /help /quit.",
	Args: cobra.MaximumNArgs(1),
	Run:  runChat,
}

func init() {
	chatCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	RootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) {
	addr, _ := cmd.Flags().GetString("metrics-addr")

	reg := prometheus.NewRegistry()
	s, err := newSession(sessionOptions{memory: true, metrics: memory.NewMetrics(reg)})
	if err != nil {
		exitErr("init", err)
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if len(args) == 1 {
		res, err := s.pipeline.Ingest(ctx, args[0])
		if err != nil {
			exitErr("ingest", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), res.Message)
	}

	if addr != "" {
		srv := &http.Server{Addr: addr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", zap.String("addr", addr))
	}

	subscribeWarnings(s.bus, cmd.ErrOrStderr())
	if err := runREPL(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), s.pipeline); err != nil {
		exitErr("chat", err)
	}
}

// subscribeWarnings prints degraded-summary notices as they happen.
func subscribeWarnings(bus *eventbus.Bus, w io.Writer) {
	bus.Subscribe(eventbus.TopicSummaryDegraded, func(ev eventbus.Event) {
		if d, ok := ev.Payload.(memory.DegradedEvent); ok {
			writeDegraded(w, d)
		}
	})
}

// runREPL reads questions from in until EOF, /quit or ctx is done. A failed
// question is reported on errOut and the session continues.
func runREPL(ctx context.Context, in io.Reader, out, errOut io.Writer, p *rag.Pipeline) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, "/stats    conversation statistics")
			fmt.Fprintln(out, "/summary  running summary and recent exchanges")
			fmt.Fprintln(out, "/reset    start a new conversation")
			fmt.Fprintln(out, "/quit     leave")
			continue
		}

		mem := p.Memory()
		switch line {
		case "/stats":
			if mem != nil {
				writeStats(out, mem.Stats())
			}
			continue
		case "/summary":
			if mem != nil {
				writeSnapshot(out, mem.Snapshot())
			}
			continue
		case "/reset":
			p.ClearConversation()
			fmt.Fprintln(out, "conversation cleared")
			continue
		}
		if strings.HasPrefix(line, "/") {
			fmt.Fprintf(errOut, "unknown command %s (try /help)\n", line)
			continue
		}

		answer, err := p.Ask(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(errOut, "error: %v\n", err)
			continue
		}
		writeAnswer(out, answer)
		fmt.Fprintln(out)
	}
}
