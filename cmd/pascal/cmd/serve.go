package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/msto63/pascal/internal/pascal/server"
	"github.com/msto63/pascal/internal/pascal/service"
)

var (
	serveHost     string
	serveGRPCPort int
	serveHTTPPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Startet gRPC- und HTTP-Server",
	Long: `Startet den Evaluator als Dienst.

Endpunkte:
  gRPC  pascal.v1.EvaluatorService (default :9310)
  HTTP  /api/v1/evaluate, /api/v1/check, /api/v1/history (default :8310)
  WS    /api/v1/evaluate/ws
  HTTP  /health

Ctrl+C oder SIGTERM beendet den Server geordnet.

Beispiele:
  pascal serve
  pascal serve --http-port 8080
  PASCAL_GRPC_PORT=9400 pascal serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen-Adresse (default aus Config)")
	serveCmd.Flags().IntVar(&serveGRPCPort, "grpc-port", 0, "gRPC-Port (default aus Config)")
	serveCmd.Flags().IntVar(&serveHTTPPort, "http-port", 0, "HTTP-Port (default aus Config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveHost
	}
	if cmd.Flags().Changed("grpc-port") {
		cfg.Server.GRPCPort = serveGRPCPort
	}
	if cmd.Flags().Changed("http-port") {
		cfg.Server.HTTPPort = serveHTTPPort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newServerLogger(cfg)
	if err != nil {
		return err
	}

	svc, err := service.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Pascal")
	fmt.Println("======")
	fmt.Printf("gRPC:   %s\n", cfg.GRPCAddress())
	fmt.Printf("HTTP:   http://%s/api/v1/\n", cfg.HTTPAddress())
	fmt.Printf("Health: http://%s/health\n", cfg.HTTPAddress())
	fmt.Println("Drücke Ctrl+C zum Beenden")
	fmt.Println()

	srv := server.New(server.ConfigFrom(cfg), svc, logger)
	if err := srv.Run(ctx); err != nil {
		return err
	}

	fmt.Println("Server beendet")
	return nil
}
