package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sparkwin/wlscan/log"
	"github.com/sparkwin/wlscan/scanner"
)

// outputValue is the -o flag value. The first path wins; later occurrences
// are remembered so they can be warned about once logging is up.
type outputValue struct {
	path  string
	set   bool
	dupes []string
}

func (v *outputValue) String() string { return v.path }
func (v *outputValue) Type() string   { return "path" }

func (v *outputValue) Set(s string) error {
	if v.set {
		v.dupes = append(v.dupes, s)
		return nil
	}
	v.path = s
	v.set = true
	return nil
}

var (
	logCfg     = log.NewConfig()
	output     = &outputValue{}
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "wlscan [flags] [input.xml ...]",
	Short: "Generate source definitions from Wayland protocol XML",
	Long: `wlscan reads Wayland protocol XML descriptions and emits namespaced
source definitions: per-interface version constants, request and event
opcode enumerations and tagged unions, and enum or packed bitfield
definitions. With no inputs it reads stdin; with no output path it writes
stdout.`,
	Args:          cobra.ArbitraryArgs,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().VarP(output, "output", "o", "output path (defaults to stdout)")
	rootCmd.Flags().StringVar(&configPath, "config", "", "YAML run configuration file")
	logCfg.RegisterFlags(rootCmd.PersistentFlags())
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if !output.set && cfg.Output != "" {
		output.path = cfg.Output
	}
	if !cmd.Flags().Changed("log-level") && cfg.Log.Level != "" {
		logCfg.Level = cfg.Log.Level
	}
	if !cmd.Flags().Changed("log-format") && cfg.Log.Format != "" {
		logCfg.Format = cfg.Log.Format
	}

	logger, err := logCfg.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	for _, d := range output.dupes {
		logger.Warn("duplicate output path ignored", "path", d, "kept", output.path)
	}

	var out io.Writer = cmd.OutOrStdout()
	var outFile *os.File
	if output.path != "" {
		outFile, err = os.Create(output.path)
		if err != nil {
			return fmt.Errorf("opening output file: %w", err)
		}
		out = outFile
	}

	if err := generate(cmd, scanner.NewEmitter(out), logger, args); err != nil {
		if outFile != nil {
			outFile.Close()
		}
		return err
	}

	if outFile != nil {
		if err := outFile.Close(); err != nil {
			return fmt.Errorf("closing output file: %w", err)
		}
	}
	return nil
}

// generate parses each input in order and emits it into the shared output
// stream. The first failing input aborts the run; later inputs are skipped
// and whatever was already emitted is abandoned.
func generate(cmd *cobra.Command, em *scanner.Emitter, logger *slog.Logger, args []string) error {
	if len(args) == 0 {
		protocols, err := scanner.Parse(cmd.InOrStdin(), "<stdin>")
		if err != nil {
			logger.Error("parse failed", "input", "<stdin>", "err", err)
			return err
		}
		return em.Emit(protocols)
	}

	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening input file: %w", err)
		}
		protocols, perr := scanner.Parse(f, path)
		f.Close()
		if perr != nil {
			logger.Error("parse failed", "input", path, "err", perr)
			return perr
		}
		if err := em.Emit(protocols); err != nil {
			return err
		}
		logger.Debug("generated", "input", path, "protocols", len(protocols))
	}
	return nil
}
