package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mcsrc/internal/session"
	"mcsrc/internal/usage"
)

var usagesCmd = &cobra.Command{
	Use:   "usages <key>",
	Short: "Find where a class, field or method is used",
	Long: `Find usages in the selected version. Keys are an internal class name,
or class:name[:descriptor] for members.

Examples:
  mcsrc usages net/minecraft/world/entity/Entity
  mcsrc usages net/minecraft/world/entity/Entity:tick:()V`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := usage.Key(args[0])
		return withSession(cmd, func(ctx context.Context, s *session.Session) error {
			jar, err := currentJar(ctx, s)
			if err != nil {
				return err
			}
			sites, err := s.FindUsages(ctx, jar, key)
			if err != nil {
				return err
			}
			if len(sites) == 0 {
				fmt.Println("No usages found")
				return nil
			}
			fmt.Printf("Usages of %s\n", usage.FormatQuery(key))
			for _, site := range sites {
				fmt.Printf("  %s  %s\n", site.ClassFile(), usage.FormatSite(site))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(usagesCmd)
}
