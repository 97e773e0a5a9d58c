package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mcsrc/internal/archive"
	"mcsrc/internal/gateway/app"
	"mcsrc/internal/gateway/config"
	"mcsrc/internal/minecraft"
	"mcsrc/internal/session"
	"mcsrc/internal/state"
)

var (
	mcVersion     string
	acceptEula    bool
	timeout       time.Duration
	settingsFile  string
	decompilerCmd string
	jarCacheDir   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mcsrc",
	Short: "Browse decompiled Minecraft sources from the terminal",
	Long: `mcsrc downloads Minecraft client jars and lets you list, decompile,
search and diff their classes.

Downloading requires accepting the Minecraft EULA once with --accept-eula.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		loaded, err := config.LoadArgs(nil)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("settings") {
			loaded.SettingsFile = settingsFile
		}
		if cmd.Flags().Changed("decompiler") {
			loaded.DecompilerCmd = decompilerCmd
		}
		if cmd.Flags().Changed("jar-cache-dir") {
			loaded.JarCache.Dir = jarCacheDir
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&mcVersion, "mc", "m", "", "minecraft version (default newest)")
	rootCmd.PersistentFlags().BoolVar(&acceptEula, "accept-eula", false, "accept the Minecraft EULA and remember it")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "give up after this long")
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "settings file")
	rootCmd.PersistentFlags().StringVar(&decompilerCmd, "decompiler", "", "external decompiler command line")
	rootCmd.PersistentFlags().StringVar(&jarCacheDir, "jar-cache-dir", "", "directory for downloaded jars")
}

// withSession runs fn against a started session whose version list is
// known.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session.Session) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	initial := state.Default()
	initial.MinecraftVersion = mcVersion
	s, stores, err := app.NewSession(cfg, initial)
	if err != nil {
		return err
	}
	defer stores.Close()
	defer s.Close()

	if acceptEula {
		if err := s.Settings.AgreedEula.Set(true); err != nil {
			return fmt.Errorf("save eula: %w", err)
		}
	}
	if !s.Settings.AgreedEula.Value() {
		return fmt.Errorf("the Minecraft EULA must be accepted first (--accept-eula)")
	}
	s.Start(ctx)

	if _, err := await(ctx, s, s.DiffLeft.Versions(), func(v []minecraft.VersionEntry) bool { return len(v) > 0 }); err != nil {
		return fmt.Errorf("load versions: %w", err)
	}
	return fn(ctx, s)
}

// currentJar waits for the selected version's jar.
func currentJar(ctx context.Context, s *session.Session) (archive.Jar, error) {
	if mcVersion != "" {
		versions, _ := s.Versions.Versions().Value()
		if _, ok := minecraft.Find(versions, mcVersion); !ok {
			return archive.Jar{}, fmt.Errorf("unknown minecraft version %q", mcVersion)
		}
	}
	jar, err := await(ctx, s, s.Versions.Jar(), func(j archive.Jar) bool {
		return j.Archive != nil && (mcVersion == "" || j.Version == mcVersion)
	})
	if err != nil {
		return archive.Jar{}, fmt.Errorf("load jar: %w", err)
	}
	return jar, nil
}

type waitable[T any] interface {
	WaitFor(ctx context.Context, pred func(T) bool) (T, error)
}

// await waits for pred on subject and gives up early when the coordinator
// reports a failure.
func await[T any](ctx context.Context, s *session.Session, subject waitable[T], pred func(T) bool) (T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	failed := make(chan error, 1)
	go func() {
		if err, werr := s.Versions.Failures().WaitFor(ctx, func(err error) bool { return err != nil }); werr == nil {
			failed <- err
		}
	}()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := subject.WaitFor(ctx, pred)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case err := <-failed:
		var zero T
		return zero, err
	}
}
