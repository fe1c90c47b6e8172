package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/scholar-refine/internal/server"
	"github.com/thywilljoshua/scholar-refine/internal/session"
)

const shutdownGrace = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			refiner, err := newRefiner(ctx, cfg, log)
			if err != nil {
				return err
			}

			store := session.NewStore(session.Options{
				Dir:            cfg.UploadDir,
				TTL:            cfg.SessionTTL,
				RequestTimeout: cfg.RequestTimeout,
			})
			srv, err := server.New(server.Options{
				Store:          store,
				Refiner:        refiner,
				MaxUploadBytes: cfg.MaxUploadMB << 20,
				Logger:         log,
			})
			if err != nil {
				store.Close()
				return err
			}

			httpSrv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				log.Info("listening", "addr", cfg.Addr, "model", cfg.Model)
				errc <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				store.Close()
				srv.Wait()
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			err = httpSrv.Shutdown(shutdownCtx)
			store.Close()
			srv.Wait()
			return err
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Int64("max-upload-mb", 50, "maximum size of one upload request in MB")
	cmd.Flags().Duration("session-ttl", 2*time.Hour, "evict sessions idle for longer than this (0 = never)")
	cmd.Flags().String("upload-dir", "", "directory for spooled uploads (default: OS temp dir)")
	return cmd
}
