package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <pdf>",
	Short: "Load a PDF into the collection",
	Long:  "Extract, chunk and store a PDF. Skipped when the collection already has a document unless --force is given.",
	Args:  cobra.ExactArgs(1),
	Run:   runIngest,
}

func init() {
	ingestCmd.Flags().Bool("force", false, "Clear the existing collection first")
	RootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")

	s, err := newSession(sessionOptions{})
	if err != nil {
		exitErr("init", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	if force {
		if err := s.store.Clear(ctx); err != nil {
			exitErr("clear", err)
		}
	}

	res, err := s.pipeline.Ingest(ctx, args[0])
	if err != nil {
		exitErr("ingest", err)
	}

	if textOutput() {
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return
	}
	printJSON(res)
}
