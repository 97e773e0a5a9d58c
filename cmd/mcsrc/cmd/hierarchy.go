package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"mcsrc/internal/inheritance"
	"mcsrc/internal/session"
)

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy <class>",
	Short: "Show the inheritance tree around a class",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		className := classFile(args[0])
		return withSession(cmd, func(ctx context.Context, s *session.Session) error {
			jar, err := currentJar(ctx, s)
			if err != nil {
				return err
			}
			view, err := s.ClassHierarchy(ctx, jar, className)
			if err != nil {
				return err
			}
			if view.Root == nil {
				return fmt.Errorf("class %s not found", className)
			}
			printTree(cmd.OutOrStdout(), view, view.Root, 0, strings.TrimSuffix(className, ".class"))
			return nil
		})
	},
}

// printTree prints expanded branches in full and collapsed ones as a count.
func printTree(w io.Writer, view inheritance.View, n *inheritance.TreeNode, depth int, selected string) {
	marker := ""
	if n.Name == selected {
		marker = "  <"
	}
	fmt.Fprintf(w, "%s%s %s%s\n", strings.Repeat("  ", depth), n.Kind, n.Name, marker)
	if len(n.Children) == 0 {
		return
	}
	if !slices.Contains(view.Expanded, n.Name) {
		fmt.Fprintf(w, "%s  ... %d subtypes\n", strings.Repeat("  ", depth), len(n.Children))
		return
	}
	for _, c := range n.Children {
		printTree(w, view, c, depth+1, selected)
	}
}

func init() {
	rootCmd.AddCommand(hierarchyCmd)
}
