package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mcsrc/internal/session"
)

var skipUnchangedSize bool

var diffCmd = &cobra.Command{
	Use:   "diff <left-version> [class]",
	Short: "Compare a version with the selected one",
	Long: `Without a class, list the classes that were added, deleted or
modified. With a class, print a unified diff of its decompiled source.

Examples:
  mcsrc diff 26.1 -m 26.2
  mcsrc diff 26.1 net.minecraft.ChatFormatting`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session.Session) error {
			right, err := currentJar(ctx, s)
			if err != nil {
				return err
			}
			left, err := s.DiffLeft.Load(ctx, args[0])
			if err != nil {
				return err
			}
			if len(args) == 2 {
				out, err := s.DiffSource(ctx, left, right, classFile(args[1]))
				if err != nil {
					return err
				}
				if out == "" {
					fmt.Println("No differences")
					return nil
				}
				fmt.Print(out)
				return nil
			}
			changes, err := s.Changes(left, right, skipUnchangedSize)
			if err != nil {
				return err
			}
			for _, c := range changes {
				fmt.Printf("%-8s %s\n", c.State, c.ClassName)
			}
			fmt.Printf("%d changed classes between %s and %s\n", len(changes), left.Version, right.Version)
			return nil
		})
	},
}

func init() {
	diffCmd.Flags().BoolVar(&skipUnchangedSize, "skip-unchanged-size", false, "ignore classes whose uncompressed size is unchanged")
	rootCmd.AddCommand(diffCmd)
}
