package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/msto63/pascal/internal/pascal/client"
	"github.com/msto63/pascal/internal/pascal/service"
	"github.com/msto63/pascal/internal/pascal/store"
)

var (
	historyLimit  int
	historyOffset int
	historyClear  bool
	historyStats  bool
	historyRemote string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Zeigt den Auswertungsverlauf",
	Long: `Zeigt gespeicherte Auswertungen, neueste zuerst.

Beispiele:
  pascal history
  pascal history --limit 10 --offset 10
  pascal history --stats
  pascal history --clear
  pascal history --remote localhost:9310`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", store.DefaultListLimit, "Maximale Anzahl Einträge")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "Anzahl übersprungener Einträge")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Verlauf löschen")
	historyCmd.Flags().BoolVar(&historyStats, "stats", false, "Statistik anzeigen")
	historyCmd.Flags().StringVar(&historyRemote, "remote", "", "Verlauf eines gRPC-Servers (host:port)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newCLILogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	ctx := context.Background()

	if historyRemote != "" {
		if historyClear || historyStats || historyOffset != 0 {
			return fmt.Errorf("--clear, --stats und --offset sind mit --remote nicht verfügbar")
		}
		c, err := client.Dial(client.DefaultConfig(historyRemote), logger.Named("client"))
		if err != nil {
			return err
		}
		defer c.Close()

		records, err := c.History(ctx, historyLimit)
		if err != nil {
			return err
		}
		printRecords(records)
		return nil
	}

	svc, err := service.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	switch {
	case historyClear:
		n, err := svc.ClearHistory(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d Einträge gelöscht\n", n)

	case historyStats:
		stats, err := svc.Statistics(ctx)
		if err != nil {
			return err
		}
		h := stats.History
		fmt.Printf("Gesamt:       %d\n", h.Total)
		fmt.Printf("Erfolgreich:  %d\n", h.Succeeded)
		fmt.Printf("Fehler:       %d\n", h.Failed)
		fmt.Printf("Ø Dauer:      %s\n", h.AvgDuration)
		for code, n := range h.ByErrorCode {
			fmt.Printf("  %-22s %d\n", code, n)
		}

	default:
		records, err := svc.History(ctx, historyLimit, historyOffset)
		if err != nil {
			return err
		}
		printRecords(records)
	}
	return nil
}

func printRecords(records []*store.Record) {
	if len(records) == 0 {
		fmt.Println("Kein Verlauf vorhanden")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Zeit", "Ausdruck", "Ergebnis", "Modus", "Quelle", "ID")

	for _, rec := range records {
		result := rec.ErrorCode
		if rec.Value != nil {
			result = strconv.Itoa(*rec.Value)
		}
		mode := "strikt"
		if !rec.Strict {
			mode = "tolerant"
		}
		t.Row(
			rec.CreatedAt.Local().Format(time.DateTime),
			rec.Expression,
			result,
			mode,
			rec.Source,
			rec.ID,
		)
	}

	fmt.Println(t)
}
