package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/msto63/pascal/internal/pascal/service"
	"github.com/msto63/pascal/internal/tui/repl"
)

var (
	replLenient bool
	replRemote  string
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Startet die interaktive Eingabe",
	Long: `Startet eine interaktive Terminal-UI zum Auswerten von Ausdrücken.

Tastenkürzel:
  Enter       Ausdruck auswerten
  ↑/↓         Eingabeverlauf
  Ctrl+S      Strikte/tolerante Klammerprüfung umschalten
  Ctrl+L      Ausgabe leeren
  Esc/Ctrl+C  Beenden`,
	RunE: runREPL,
}

func init() {
	rootCmd.AddCommand(replCmd)

	replCmd.Flags().BoolVar(&replLenient, "lenient", false, "Mit toleranter Klammerprüfung starten")
	replCmd.Flags().StringVar(&replRemote, "remote", "", "Auswertung über gRPC-Server (host:port)")
}

func runREPL(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// The TUI owns the terminal, so logs only go to the configured file.
	logger, err := newCLILogger(cfg, io.Discard)
	if err != nil {
		return err
	}

	eval, closeFn, err := openEvaluator(cfg, logger, replRemote, service.SourceREPL, true)
	if err != nil {
		return err
	}
	defer closeFn()

	target := "lokal"
	if replRemote != "" {
		target = replRemote
	}

	strict := !cfg.Evaluator.Lenient
	if cmd.Flags().Changed("lenient") {
		strict = !replLenient
	}

	return repl.Run(repl.Config{
		Eval: func(ctx context.Context, expression string, s bool) (int, error) {
			return eval(ctx, expression, &s)
		},
		Strict:       strict,
		Target:       target,
		SettingsFile: repl.DefaultSettingsFile(),
	})
}
