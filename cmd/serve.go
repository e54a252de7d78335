package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-booth/internal/booth"
	"github.com/kozaktomas/photo-booth/internal/web"
	"github.com/kozaktomas/photo-booth/internal/web/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Photo Booth web server.
The server keeps every opened template in sync with newly ingested photos,
exposes the operator console and the JSON API, and streams template changes
to connected browsers.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("printer", printerHelper, "Where printed sheets go: helper, cloud or none")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	printer, err := selectPrinter(mustGetString(cmd, "printer"), cfg.Printing, b, log)
	if err != nil {
		return err
	}
	if printer == nil {
		log.Warn().Msg("No printer configured, sheets are kept for download only")
	}

	deps := web.Deps{
		Registry: booth.NewRegistry(b.viewDeps(cfg, printer, log)),
		Ingestor: booth.NewIngestor(b.Store, b.Objects, log),
		Cloud:    b.Cloud,
		Origins:  cfg.App.Origins,
		Log:      log,
	}
	var helper handlers.PrinterLister
	if b.Helper != nil {
		helper = b.Helper
	}
	deps.Helper = helper

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(deps, port, host)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error during shutdown")
		}
	}()

	log.Info().Str("addr", fmt.Sprintf("http://%s:%d", host, port)).Msg("Starting Photo Booth")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
