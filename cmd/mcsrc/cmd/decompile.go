package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mcsrc/internal/archive"
	"mcsrc/internal/session"
)

var lambdas bool

var decompileCmd = &cobra.Command{
	Use:   "decompile <class>",
	Short: "Print the Java source of a class",
	Long: `Decompile a class of the selected version. Classes may be written
with dots or slashes.

Examples:
  mcsrc decompile net.minecraft.ChatFormatting
  mcsrc decompile -m 26.1 net/minecraft/world/entity/Entity --lambdas`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		className := classFile(args[0])
		return withSession(cmd, func(ctx context.Context, s *session.Session) error {
			jar, err := currentJar(ctx, s)
			if err != nil {
				return err
			}
			printSource(ctx, os.Stdout, s, jar, className, lambdas)
			return nil
		})
	},
}

// printSource writes the Java source of className. It bypasses the saved
// display settings so a CLI flag never changes them.
func printSource(ctx context.Context, w io.Writer, s *session.Session, jar archive.Jar, className string, lambdas bool) {
	res := s.Service.Decompile(ctx, jar, className, lambdas)
	fmt.Fprint(w, res.Source)
	if !strings.HasSuffix(res.Source, "\n") {
		fmt.Fprintln(w)
	}
}

var bytecodeCmd = &cobra.Command{
	Use:   "bytecode <class>",
	Short: "Print the bytecode listing of a class and its nested classes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		className := classFile(args[0])
		return withSession(cmd, func(ctx context.Context, s *session.Session) error {
			jar, err := currentJar(ctx, s)
			if err != nil {
				return err
			}
			fmt.Println(s.Service.Bytecode(ctx, jar, className).Source)
			return nil
		})
	},
}

// classFile turns "a.b.C" or "a/b/C" into the jar entry name.
func classFile(name string) string {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".class")
	if !strings.Contains(name, "/") {
		name = strings.ReplaceAll(name, ".", "/")
	}
	return name + ".class"
}

func init() {
	decompileCmd.Flags().BoolVar(&lambdas, "lambdas", false, "show lambda bodies next to their use sites")
	rootCmd.AddCommand(decompileCmd, bytecodeCmd)
}
