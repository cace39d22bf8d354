package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ops server and accept runs over HTTP",
	Long: `Serve exposes /healthz, /metrics, GET /runs/last and POST /runs.
Runs started over HTTP execute one at a time in the background.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		srv, ops := a.opsServer(ctx, a.driver)
		if srv == nil {
			return errors.New("serve requires http.port")
		}

		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
			a.logger.Info("Received shutdown signal")
		case err := <-errCh:
			if err != nil {
				return err
			}
		}

		a.shutdown(srv)
		// ctx is canceled, so an in-flight run stops at its next checkpoint
		ops.Wait()
		a.logger.Info("Server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
