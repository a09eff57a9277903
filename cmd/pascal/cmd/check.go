package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/msto63/pascal/internal/pascal/harness"
	"github.com/msto63/pascal/internal/pascal/service"
	"github.com/msto63/pascal/pkg/core/logging"
)

var (
	checkCases   string
	checkRemote  string
	checkLenient bool
	checkWatch   bool
)

// watchDebounce collapses the burst of events an editor save produces
const watchDebounce = 200 * time.Millisecond

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Führt Testfälle aus",
	Long: `Führt die eingebauten Testfälle oder eine YAML-Falldatei aus
und gibt je Fall eine PASS- oder FAIL-Zeile aus.

Falldatei:
  name: regression
  cases:
    - expression: "((8+7)*2)"
      expected: 30
    - expression: "(8+())"
      malformed: true
    - expression: "(5/0)"
      fault: division-by-zero

Mit --watch wird die Falldatei bei jeder Änderung erneut ausgeführt.

Beispiele:
  pascal check
  pascal check --cases cases.yaml
  pascal check --cases cases.yaml --watch
  pascal check --remote localhost:9310`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkCases, "cases", "", "YAML-Falldatei (default: eingebaute Fälle)")
	checkCmd.Flags().StringVar(&checkRemote, "remote", "", "Prüfung gegen gRPC-Server (host:port)")
	checkCmd.Flags().BoolVar(&checkLenient, "lenient", false, "Beliebige schließende Klammer akzeptieren")
	checkCmd.Flags().BoolVarP(&checkWatch, "watch", "w", false, "Falldatei beobachten und bei Änderung erneut prüfen")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newCLILogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	cases := checkCases
	if cases == "" {
		cases = cfg.Harness.CasesFile
	}
	if checkWatch && cases == "" {
		return fmt.Errorf("--watch benötigt --cases")
	}

	var strict *bool
	if cmd.Flags().Changed("lenient") {
		s := !checkLenient
		strict = &s
	}

	eval, closeFn, err := openEvaluator(cfg, logger, checkRemote, service.SourceCheck, false)
	if err != nil {
		return err
	}
	defer closeFn()

	run := func(ctx context.Context) (bool, error) {
		suite := harness.DefaultSuite()
		if cases != "" {
			loaded, err := harness.LoadSuite(cases)
			if err != nil {
				return false, err
			}
			suite = loaded
		}
		report, err := harness.Run(ctx, func(ctx context.Context, expression string) (int, error) {
			return eval(ctx, expression, strict)
		}, suite)
		if err != nil {
			return false, err
		}
		if _, err := report.WriteTo(cmd.OutOrStdout()); err != nil {
			return false, err
		}
		return report.OK(), nil
	}

	if checkWatch {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return watchCases(ctx, cases, cmd.OutOrStdout(), logger, run)
	}

	ok, err := run(context.Background())
	if err != nil {
		return err
	}
	if !ok {
		return errReported
	}
	return nil
}

// watchCases runs the suite once and again after every change of path
// until ctx is done. Errors of a single run are printed, not returned.
func watchCases(ctx context.Context, path string, out io.Writer, logger *logging.Logger, run func(context.Context) (bool, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Editors often replace the file, so the directory is watched.
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	runOnce := func() {
		fmt.Fprintf(out, "== %s (%s)\n", path, time.Now().Format("15:04:05"))
		if _, err := run(ctx); err != nil {
			fmt.Fprintf(out, "Fehler: %v\n", err)
		}
	}
	runOnce()

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				logger.Debug("Case file changed", "path", event.Name, "op", event.Op.String())
				debounce = time.After(watchDebounce)
			}

		case <-debounce:
			debounce = nil
			runOnce()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", "error", err.Error())
		}
	}
}
