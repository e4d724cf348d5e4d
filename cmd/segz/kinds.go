package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zoobzio/segz/recipe"
)

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the step kinds recipes may use",
	Long:  "Display the segment kinds registered for each slot type, plus the reserved nested pipe kind.",
	Run: func(cmd *cobra.Command, _ []string) {
		listKinds(cmd.OutOrStdout())
	},
}

func listKinds(w io.Writer) {
	fmt.Fprintln(w, "Available kinds:")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-8s %s\n", typeString, strings.Join(recipe.Strings().Kinds(), ", "))
	fmt.Fprintf(w, "  %-8s %s\n", typeInt, strings.Join(recipe.Ints().Kinds(), ", "))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %q nests a pipe built from its own steps.\n", recipe.KindPipe)
}
