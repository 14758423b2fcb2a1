package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frameless-media/datatables/internal/web"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var addr string
	var perPage int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the admin HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, addr, perPage)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "page size (default from config)")
	cmd.Flags().String("fixture", "", "serve from a YAML fixture file instead of the database")
	return cmd
}

func runServe(cmd *cobra.Command, addr string, perPage int) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if addr == "" {
		addr = cmdCtx.Config.Addr
	}
	if perPage <= 0 {
		perPage = cmdCtx.Config.PerPage
	}

	server := web.NewServer(cmdCtx.Engine, cmdCtx.Host, cmdCtx.Logger, perPage)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(addr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sig:
	case <-cmd.Context().Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
