package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/markedit-studio/markedit/internal/config"
	"github.com/markedit-studio/markedit/internal/discovery"
	"github.com/markedit-studio/markedit/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(version string, configPath *string) *cobra.Command {
	var port string
	var staticDir string
	var advertise bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the editing API for the browser front end",
		Long: `Starts the Markedit API on the specified port.

The browser front end uploads a photo, streams pointer events over a WebSocket
while the user draws, and triggers generations. Sessions and history live in
memory only and are lost when the server stops.`,
		Example: `  # Start server on default port 8888
  markedit serve

  # Serve the front end from ./static and announce it on the LAN
  markedit serve --static ./static --mdns`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			editor, release, err := newEditor(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer release()

			handler := handlers.New(editor, cfg, staticDir)

			// Set up routes
			mux := handler.Routes()
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			if advertise {
				p, err := strconv.Atoi(port)
				if err != nil {
					return fmt.Errorf("invalid port %q: %w", port, err)
				}
				mdnsServer, err := discovery.Advertise(p, version)
				if err != nil {
					return err
				}
				defer func() {
					if err := mdnsServer.Shutdown(); err != nil {
						slog.Warn("mDNS shutdown failed", "err", err)
					}
				}()
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Markedit API available", "addr", addr, "url", "http://localhost"+addr, "provider", cfg.Provider, "model", cfg.Model)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&staticDir, "static", "", "Directory with the browser front end to serve at /")
	cmd.Flags().BoolVar(&advertise, "mdns", false, "Advertise the server on the local network via mDNS")

	return cmd
}
