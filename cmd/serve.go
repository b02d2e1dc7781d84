package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/memetrace/attribution/internal/fetcher"
	"github.com/memetrace/attribution/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attribution API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", handleAnalyze(env))
		r.Post("/claim", handleClaim(env))
		r.Get("/dataset", handleDataset(env))
		r.Get("/runs/{id}", handleGetRun(env))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze accepts an uploaded image (multipart field "image") or a
// JSON body with a media URL, runs the pipeline, and returns the result.
func handleAnalyze(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := readMedia(env, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		result, err := env.Pipeline.Run(r.Context(), payload)
		if err != nil {
			zap.L().Error("analyze request failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func readMedia(env *appEnv, r *http.Request) (model.MediaPayload, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(cfg.Server.MaxUploadBytes); err != nil {
			return model.MediaPayload{}, eris.Wrap(err, "parse multipart form")
		}
		file, _, ferr := r.FormFile("image")
		if ferr != nil {
			return model.MediaPayload{}, eris.New("multipart request missing image field")
		}
		defer file.Close() //nolint:errcheck

		data, rerr := io.ReadAll(io.LimitReader(file, cfg.Server.MaxUploadBytes+1))
		if rerr != nil {
			return model.MediaPayload{}, eris.Wrap(rerr, "read upload")
		}
		if int64(len(data)) > cfg.Server.MaxUploadBytes {
			return model.MediaPayload{}, eris.Errorf("upload exceeds %d bytes", cfg.Server.MaxUploadBytes)
		}
		return fetcher.EncodeMedia(data)
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		return model.MediaPayload{}, eris.New("request must be multipart with an image field or JSON with a url")
	}
	return env.Fetcher.FetchMedia(r.Context(), req.URL)
}

// handleClaim drafts a copyright-claim email from a completed analysis.
// Drafting never fails outright; degraded drafts carry a note.
func handleClaim(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OriginalAnalysis model.ContentDescription `json:"original_analysis"`
			FinalMatch       model.FinalMatch         `json:"final_match"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, eris.New("invalid request body"))
			return
		}

		draft := env.Drafter.Draft(r.Context(), req.OriginalAnalysis, req.FinalMatch)
		writeJSON(w, http.StatusOK, draft)
	}
}

func handleDataset(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := env.Store.ListDatasetRecords(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"count":   len(records),
			"records": records,
		})
	}
}

func handleGetRun(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := env.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
