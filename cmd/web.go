package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kayz/promptblocks/internal/compiler"
	"github.com/kayz/promptblocks/internal/config"
	"github.com/kayz/promptblocks/internal/logger"
	"github.com/kayz/promptblocks/internal/persist"
	"github.com/kayz/promptblocks/internal/webui"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newWebCommand())
}

func newWebCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Run the PromptBlocks editor in the browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(cfg *config.Config, store *persist.Store) error {
				if !cmd.Flags().Changed("port") {
					port = cfg.Web.Port
				}
				return runWeb(cfg, store, port)
			})
		},
	}

	cmd.Flags().IntVar(&port, "port", config.DefaultConfig().Web.Port, "Web UI listen port")
	return cmd
}

func runWeb(cfg *config.Config, store *persist.Store, port int) error {
	server := webui.NewServer(store, webui.Options{
		Recorder:        compiler.NewRecorder(cfg.Audit),
		CleanupSchedule: cfg.Audit.CleanupSchedule,
		AutosaveDelay:   time.Duration(cfg.Web.AutosaveDelayMS) * time.Millisecond,
	})
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("[Web] Listening on http://127.0.0.1:%d", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("web server: %w", err)
		}
		return nil
	case sig := <-sigCh:
		logger.Info("[Web] Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("[Web] Shutdown: %v", err)
	}
	return nil
}
