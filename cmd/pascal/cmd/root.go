package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/msto63/pascal/pkg/core/config"
	"github.com/msto63/pascal/pkg/core/logging"
)

var (
	cfgFile string
	verbose bool
)

// errReported signals a failure whose details were already printed
var errReported = errors.New("failures reported")

var rootCmd = &cobra.Command{
	Use:   "pascal",
	Short: "Pascal - Klammerausdruck-Evaluator",
	Long: `Pascal wertet vollständig geklammerte arithmetische Ausdrücke
über einstelligen Operanden aus.

Grammatik:
  Ausdruck := Ziffer | Klammer-auf Ausdruck Operator Ausdruck Klammer-zu
  Ziffer   := 0..9
  Operator := + - * /
  Klammern := () {} []

Beispiele:
  pascal eval "((8+7)*2)"        # 30
  pascal eval "(4-(7-1))" 8      # mehrere Ausdrücke
  pascal check                   # eingebaute Testfälle
  pascal serve                   # gRPC- und HTTP-Server starten`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errReported) {
		printError("Befehl fehlgeschlagen", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config-Datei (default: ./configs/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose Output")
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Fehler: %s: %v\n", msg, err)
}

// loadConfig loads --config, PASCAL_CONFIG or a default location, falling
// back to built-in defaults when no file exists.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newCLILogger logs warnings to stderr in console format so that command
// output stays readable; --verbose lowers the level to debug.
func newCLILogger(cfg *config.Config, w io.Writer) (*logging.Logger, error) {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logging.NewFromConfig(logging.LoggerConfig{
		ServiceName: cfg.General.Name,
		Level:       level,
		Format:      "console",
		File:        cfg.General.LogFile,
		Output:      w,
	})
}

// newServerLogger follows the configured level and format
func newServerLogger(cfg *config.Config) (*logging.Logger, error) {
	level := cfg.General.LogLevel
	if verbose {
		level = "debug"
	}
	return logging.NewFromConfig(logging.LoggerConfig{
		ServiceName: cfg.General.Name,
		Level:       level,
		Format:      cfg.General.LogFormat,
		File:        cfg.General.LogFile,
		Output:      os.Stderr,
	})
}
