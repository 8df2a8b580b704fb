package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every ingested document",
	Run:   runClear,
}

func init() {
	RootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) {
	st, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	if err := st.Clear(cmd.Context()); err != nil {
		exitErr("clear", err)
	}

	if textOutput() {
		fmt.Fprintln(cmd.OutOrStdout(), "collection cleared")
		return
	}
	printJSON(map[string]bool{"cleared": true})
}
