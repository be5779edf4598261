package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stwir/clean-bib-file/internal/bibtex"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an HTTP server that cleans posted BibTeX",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})

		mux.HandleFunc("POST /clean", newCleanHandler(env))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownServer(srv)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

const shutdownTimeout = 10 * time.Second

// shutdownServer drains in-flight requests under a fresh deadline; the signal
// context is already canceled by the time shutdown starts.
func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("server shutdown", zap.Error(err))
	}
}

// newCleanHandler accepts raw BibTeX in the request body and responds with the
// cleaned bibliography, plus run counters in response headers.
func newCleanHandler(env *cleanEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
		if err != nil {
			http.Error(w, `{"error":"read body"}`, http.StatusBadRequest)
			return
		}
		if len(body) == 0 {
			http.Error(w, `{"error":"empty body"}`, http.StatusBadRequest)
			return
		}

		lib := bibtex.ParseString(string(body))
		result := env.Pipeline.Run(r.Context(), lib.Entries())

		w.Header().Set("Content-Type", "application/x-bibtex")
		w.Header().Set("X-Clean-Updated", fmt.Sprint(result.Updated))
		w.Header().Set("X-Clean-Unchanged", fmt.Sprint(result.Unchanged))
		w.Header().Set("X-Clean-Skipped", fmt.Sprint(result.Skipped))
		w.WriteHeader(http.StatusOK)
		if err := bibtex.Write(w, lib); err != nil {
			zap.L().Error("write response", zap.Error(err))
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
