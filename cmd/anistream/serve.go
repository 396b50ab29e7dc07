package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alvarorichard/anistream/internal/handlers"
	"github.com/alvarorichard/anistream/internal/proxy"
	"github.com/alvarorichard/anistream/internal/util"
	"github.com/alvarorichard/anistream/internal/version"
	"github.com/spf13/cobra"
)

const shutdownGrace = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and the stream proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("public-base-url", "", "origin used in rewritten playlist urls")
	cmd.Flags().Int("search-limit", 40, "maximum merged search results")
	cmd.Flags().Bool("proxy-allow-private", false, "let the proxy reach private and loopback addresses")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	streamClient := util.NewSafeStreamClient()
	if a.cfg.ProxyAllowPrivate {
		streamClient = util.NewStreamClient()
	}

	server := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           handlers.SetupRoutes(handlers.NewHandler(a.resolver), proxy.New(streamClient, a.cfg.PublicBaseURL)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		util.Info("Listening", "addr", a.cfg.Addr, "version", version.Version)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	util.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
