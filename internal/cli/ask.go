package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question about the ingested document",
	Args:  cobra.MinimumNArgs(1),
	Run:   runAsk,
}

func init() {
	askCmd.Flags().Bool("no-memory", false, "Answer from the document alone")
	askCmd.Flags().Int("k", 0, "Passages to retrieve (default from config)")
	RootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) {
	noMemory, _ := cmd.Flags().GetBool("no-memory")
	if k, _ := cmd.Flags().GetInt("k"); k > 0 {
		cfg.Retrieval.K = k
	}

	s, err := newSession(sessionOptions{memory: !noMemory})
	if err != nil {
		exitErr("init", err)
	}
	defer s.Close()

	question := strings.Join(args, " ")
	ask := s.pipeline.Ask
	if noMemory {
		ask = s.pipeline.AskWithoutMemory
	}
	answer, err := ask(cmd.Context(), question)
	if err != nil {
		exitErr("ask", err)
	}

	if textOutput() {
		writeAnswer(cmd.OutOrStdout(), answer)
		if answer.Degraded != nil {
			writeDegraded(os.Stderr, *answer.Degraded)
		}
		return
	}
	printJSON(answer)
}
