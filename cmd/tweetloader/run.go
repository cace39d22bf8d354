package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runKeyword string
	runFilter  string
	runMax     int
	runServe   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one keyword search into the document store",
	Long: `Run pages through the search results for --keyword until the record cap
is reached, the results are exhausted or an empty page arrives. Counters are
printed on completion; a failed run exits non-zero.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if runKeyword == "" {
			return errors.New("--keyword is required")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if runServe {
			if srv, _ := a.opsServer(ctx, nil); srv != nil {
				go func() {
					a.logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.logger.Error("HTTP server error", zap.Error(err))
					}
				}()
				defer a.shutdown(srv)
			}
		}

		maxRecords := runMax
		if maxRecords == 0 {
			maxRecords = a.cfg.Ingest.MaxRecords
		}

		res, err := a.driver.Run(ctx, runKeyword, runFilter, maxRecords)
		fmt.Fprintf(cmd.OutOrStdout(),
			"run %s: %s scraped=%d inserted=%d ignored=%d errors=%d pages=%d\n",
			res.RunID, res.Termination,
			res.Counters.Scraped, res.Counters.Inserted, res.Counters.Ignored, res.Counters.Errors,
			res.Pages,
		)
		if err != nil {
			return fmt.Errorf("run %s: %w", res.RunID, err)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runKeyword, "keyword", "k", "", "Search keyword (required)")
	runCmd.Flags().StringVarP(&runFilter, "filter", "f", "latest", "Search filter: latest, top, media, photos, videos or empty")
	runCmd.Flags().IntVarP(&runMax, "max", "n", 0, "Maximum records to scrape (default from config)")
	runCmd.Flags().BoolVar(&runServe, "serve", false, "Expose /healthz and /metrics while the run is in progress")
	rootCmd.AddCommand(runCmd)
}
