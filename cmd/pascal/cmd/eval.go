package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/msto63/pascal/internal/pascal/client"
	"github.com/msto63/pascal/internal/pascal/service"
	"github.com/msto63/pascal/pkg/core/config"
	"github.com/msto63/pascal/pkg/core/logging"
)

var (
	evalLenient   bool
	evalRemote    string
	evalMaxDepth  int
	evalNoHistory bool
)

var evalCmd = &cobra.Command{
	Use:   "eval [ausdruck...]",
	Short: "Wertet Ausdrücke aus",
	Long: `Wertet einen oder mehrere Ausdrücke aus.

Ohne Argumente wird je Zeile ein Ausdruck von stdin gelesen.
Bei einem Ausdruck wird nur der Wert ausgegeben, bei mehreren
"Ausdruck = Wert". Fehler erscheinen auf stderr, der Exit-Code
ist dann 1. --max-depth und --no-history gelten nur lokal
und werden zusammen mit --remote abgelehnt.

Beispiele:
  pascal eval "((8+7)*2)"
  pascal eval --lenient "(8+1]"
  pascal eval --remote localhost:9310 "(4-(7-1))"
  echo "(1+2)" | pascal eval`,
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().BoolVar(&evalLenient, "lenient", false, "Beliebige schließende Klammer akzeptieren")
	evalCmd.Flags().StringVar(&evalRemote, "remote", "", "Auswertung über gRPC-Server (host:port)")
	evalCmd.Flags().IntVar(&evalMaxDepth, "max-depth", 0, "Maximale Schachtelungstiefe (nur lokal, default aus Config)")
	evalCmd.Flags().BoolVar(&evalNoHistory, "no-history", false, "Auswertung nicht im Verlauf speichern (nur lokal)")
}

// evalFunc evaluates one expression; strict nil selects the default mode
type evalFunc func(ctx context.Context, expression string, strict *bool) (int, error)

// openEvaluator returns a local service or a remote client as evalFunc
func openEvaluator(cfg *config.Config, logger *logging.Logger, remote, source string, record bool) (evalFunc, func() error, error) {
	if remote != "" {
		c, err := client.Dial(client.DefaultConfig(remote), logger.Named("client"))
		if err != nil {
			return nil, nil, err
		}
		return c.EvaluateWith, c.Close, nil
	}

	svc, err := service.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	eval := func(ctx context.Context, expression string, strict *bool) (int, error) {
		result, err := svc.Evaluate(ctx, expression, service.EvaluateOptions{
			Strict:   strict,
			Source:   source,
			NoRecord: !record,
		})
		if err != nil {
			return 0, err
		}
		return result.Value, nil
	}
	return eval, svc.Close, nil
}

func runEval(cmd *cobra.Command, args []string) error {
	if evalRemote != "" && (cmd.Flags().Changed("max-depth") || evalNoHistory) {
		return fmt.Errorf("--max-depth und --no-history sind mit --remote nicht verfügbar")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("max-depth") {
		cfg.Evaluator.MaxDepth = evalMaxDepth
	}

	logger, err := newCLILogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	var strict *bool
	if cmd.Flags().Changed("lenient") {
		s := !evalLenient
		strict = &s
	}

	expressions := args
	if len(expressions) == 0 {
		expressions, err = readLines(cmd.InOrStdin())
		if err != nil {
			return err
		}
	}

	eval, closeFn, err := openEvaluator(cfg, logger, evalRemote, service.SourceCLI, !evalNoHistory)
	if err != nil {
		return err
	}
	defer closeFn()

	failed := evaluateAll(cmd.Context(), eval, strict, expressions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if failed > 0 {
		return errReported
	}
	return nil
}

// evaluateAll prints one result per expression and returns the number of
// failures
func evaluateAll(ctx context.Context, eval evalFunc, strict *bool, expressions []string, out, errOut io.Writer) int {
	if ctx == nil {
		ctx = context.Background()
	}

	failed := 0
	for _, expr := range expressions {
		value, err := eval(ctx, expr, strict)
		if err != nil {
			failed++
			fmt.Fprintf(errOut, "Fehler: %s: %v\n", expr, err)
			continue
		}
		if len(expressions) == 1 {
			fmt.Fprintln(out, value)
		} else {
			fmt.Fprintf(out, "%s = %d\n", expr, value)
		}
	}
	return failed
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
