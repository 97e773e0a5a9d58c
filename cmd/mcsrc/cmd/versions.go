package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mcsrc/internal/session"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List the supported Minecraft versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session.Session) error {
			versions, _ := s.Versions.Versions().Value()
			selected, _ := s.Versions.Selected().Value()
			for _, v := range versions {
				marker := " "
				if v.ID == selected {
					marker = "*"
				}
				fmt.Printf("%s %-24s %-10s %s\n", marker, v.ID, v.Type, v.ReleaseTime)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(versionsCmd)
}
