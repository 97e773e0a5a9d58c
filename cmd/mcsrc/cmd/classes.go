package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mcsrc/internal/session"
)

var classesCmd = &cobra.Command{
	Use:   "classes [prefix]",
	Short: "List the classes of a version",
	Long: `List the top-level classes of the selected version.

Examples:
  mcsrc classes net/minecraft/world/entity/
  mcsrc classes -m 26.1`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var prefix string
		if len(args) == 1 {
			prefix = strings.ReplaceAll(args[0], ".", "/")
		}
		return withSession(cmd, func(ctx context.Context, s *session.Session) error {
			jar, err := currentJar(ctx, s)
			if err != nil {
				return err
			}
			for _, name := range jar.Archive.ClassNames() {
				if strings.Contains(name, "$") || !strings.HasPrefix(name, prefix) {
					continue
				}
				fmt.Println(name)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(classesCmd)
}
