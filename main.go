package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"

	"github.com/riadafridishibly/npkill/config"
	"github.com/riadafridishibly/npkill/report"
	"github.com/riadafridishibly/npkill/scanner"
	"github.com/riadafridishibly/npkill/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Set via ldflags at build time.
var version = "dev"

func tempDir() string {
	if runtime.GOOS == "darwin" {
		return "/tmp"
	}
	return os.TempDir()
}

// options holds the state shared between the root command's hooks.
type options struct {
	configPath string
	plain      bool

	root string
	cfg  config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "npkill [dir]",
		Short:         "Find and remove node_modules directories",
		Long:          "npkill walks a directory tree, lists every node_modules folder with its size,\nand lets you delete the ones you no longer need.",
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			rootDir := "."
			if len(args) > 0 {
				rootDir = args[0]
			}
			absPath, err := filepath.Abs(rootDir)
			if err != nil {
				return fmt.Errorf("resolving path %s: %w", rootDir, err)
			}
			opts.root = absPath

			cfg, cfgPath, err := config.Load(absPath, opts.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cfgPath != "" {
				log.Println("Using config:", cfgPath)
			}
			if err := applyFlags(cmd.Flags(), &cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid options: %w", err)
			}
			opts.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.plain {
				return runPlain(cmd.Context(), opts.root, opts.cfg)
			}
			if _, err := os.Stat(opts.root); err != nil {
				return fmt.Errorf("cannot scan %s: %w", opts.root, err)
			}
			app := tui.NewApp(opts.root, opts.cfg)
			defer app.Stop()
			if err := app.Run(cmd.Context()); err != nil {
				return fmt.Errorf("running application: %w", err)
			}
			return nil
		},
	}

	cmd.SetVersionTemplate("npkill {{.Version}}\n")
	cmd.CompletionOptions.DisableDefaultCmd = true

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML config file (default: ./.npkill.yaml or ~/.config/npkill/config.yaml)")
	flags.BoolVar(&opts.plain, "plain", false, "Print results as lines instead of the interactive UI")
	flags.String("theme", config.DefaultTheme, "UI theme (nord, gruvbox-dark, catppuccin, dracula)")
	flags.Int("concurrency", 0, "Directories measured at once (0 = auto)")
	flags.Duration("refresh", config.DefaultRefreshInterval, "Screen refresh interval, e.g. 250ms")
	flags.Bool("no-tilde", false, "Show full paths instead of abbreviating the home directory")
	flags.Bool("no-confirm", false, "Delete without a confirmation prompt")

	return cmd
}

// applyFlags overrides cfg with the flags given on the command line. Flags
// left at their defaults never override the config file.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	var err error
	if flags.Changed("theme") {
		if cfg.Theme, err = flags.GetString("theme"); err != nil {
			return err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return err
		}
	}
	if flags.Changed("refresh") {
		if cfg.RefreshInterval, err = flags.GetDuration("refresh"); err != nil {
			return err
		}
	}
	if flags.Changed("no-tilde") {
		noTilde, err := flags.GetBool("no-tilde")
		if err != nil {
			return err
		}
		cfg.ReplaceHomeWithTilde = !noTilde
	}
	if flags.Changed("no-confirm") {
		noConfirm, err := flags.GetBool("no-confirm")
		if err != nil {
			return err
		}
		cfg.ConfirmDelete = !noConfirm
	}
	return nil
}

func runPlain(ctx context.Context, root string, cfg config.Config) error {
	sc, err := scanner.StartScan(ctx, root, scanner.Options{
		Concurrency: cfg.Concurrency,
		EventBuffer: cfg.EventBuffer,
	})
	if err != nil {
		return fmt.Errorf("cannot scan: %w", err)
	}

	opts := report.Options{Interval: cfg.RefreshInterval}
	if cfg.ReplaceHomeWithTilde {
		if home, err := os.UserHomeDir(); err == nil {
			opts.Home = home
		}
	}
	if err := report.Stream(ctx, os.Stdout, sc, opts); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logFile, err := os.CreateTemp(tempDir(), "npkill-*.log")
	if err != nil {
		log.Fatalf("Error creating log file: %v", err)
	}
	defer logFile.Close()
	log.SetFlags(log.Lshortfile | log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix("[NPKILL] ")
	log.SetOutput(logFile)

	fmt.Fprintln(os.Stderr, "Logfile is being written in:", logFile.Name())

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
