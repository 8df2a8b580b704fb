package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show configuration and collection statistics",
	Run:   runInfo,
}

func init() {
	RootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) {
	s, err := newSession(sessionOptions{memory: true})
	if err != nil {
		exitErr("init", err)
	}
	defer s.Close()

	info, err := s.pipeline.Info(cmd.Context())
	if err != nil {
		exitErr("info", err)
	}

	if !textOutput() {
		printJSON(info)
		return
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "status: %s\n", info.Status)
	fmt.Fprintf(w, "provider: %s (%s)\n", info.Config.Provider, info.Config.Model)
	fmt.Fprintf(w, "embeddings: %t\n", info.Config.Embeddings)
	fmt.Fprintf(w, "chunks: %d (size %d, overlap %d, k %d)\n",
		info.Store.ChunkCount, info.Config.ChunkSize, info.Config.ChunkOverlap, info.Config.RetrievalK)
	fmt.Fprintf(w, "memory: %d tokens, %d recent exchanges\n",
		info.Config.TokenBudget, info.Config.MaxRecentExchanges)
	fmt.Fprintf(w, "db: %s (%d bytes)\n", info.Store.DBPath, info.Store.DBSizeBytes)
	for _, d := range info.Store.Documents {
		fmt.Fprintf(w, "  %s  %d pages  %d chunks\n", d.Name, d.Pages, d.ChunkCount)
	}
}
