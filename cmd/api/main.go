package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"feedback-insights-go/internal/config"
	"feedback-insights-go/internal/dataset"
	"feedback-insights-go/internal/extractor"
	"feedback-insights-go/internal/logger"
	"feedback-insights-go/internal/normalizer"
	"feedback-insights-go/internal/overseer"
	"feedback-insights-go/internal/pipeline"
	"feedback-insights-go/internal/rules"
	"feedback-insights-go/internal/types"
)

// analyzeRequest is the inline-dataset form of POST /analyze. The collaborator
// UI can also point the service at an xlsx file with ?dataset_path=.
type analyzeRequest struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

type errorResponse struct {
	AnalysisMethod types.AnalysisMethod `json:"analysis_method"`
	Error          *types.AnalysisError `json:"error"`
}

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "feedback-insights-go").Info("starting service")

	cfg := config.FromEnv()

	var reviewer overseer.SecondOpinion
	if cfg.ReviewAPIKey != "" {
		reviewer = overseer.NewOpenAIReviewer(cfg)
		log.Info("secondary LLM review enabled")
	}

	orch := pipeline.New(
		cfg,
		log,
		extractor.NewClient(cfg, log),
		rules.NewEngine(),
		normalizer.New(cfg),
		overseer.New(cfg, log, reviewer),
	)

	mux := http.NewServeMux()

	// health
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logger.New().WithRequest(r).Info("health check")
		fmt.Fprint(w, "ok")
	})

	// analyze endpoint
	mux.HandleFunc("/analyze", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "analyze")
		reqLog.Info("analyze request received")

		ds, loadErr := loadDataset(r)
		if loadErr != nil {
			reqLog.WithError(loadErr).Warn("dataset load failed")
			writeError(w, http.StatusBadRequest, types.NewInputError("dataset load failed: %v", loadErr))
			return
		}

		start := time.Now()
		res, runErr := orch.Run(r.Context(), ds)
		reqLog.WithField("duration_ms", time.Since(start).Milliseconds()).Info("pipeline finished")

		if runErr != nil {
			status := http.StatusInternalServerError
			if runErr.Code == types.ErrInput {
				status = http.StatusBadRequest
			}
			reqLog.WithError(runErr).Warn("pipeline returned error")
			writeError(w, status, runErr)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			reqLog.WithError(err).Error("failed to write response")
		}
	})

	addr := fmt.Sprintf(":%s", envOr("PORT", "8080"))
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

// loadDataset builds the Dataset from either the dataset_path query (xlsx on
// disk) or an inline JSON body.
func loadDataset(r *http.Request) (*dataset.Dataset, error) {
	if path := r.URL.Query().Get("dataset_path"); path != "" {
		return dataset.Load(path)
	}
	if r.Method != http.MethodPost {
		return nil, fmt.Errorf("POST a dataset or pass dataset_path")
	}
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if len(req.Columns) == 0 || len(req.Rows) == 0 {
		return nil, fmt.Errorf("columns and rows are required")
	}
	return &dataset.Dataset{Columns: req.Columns, Rows: req.Rows}, nil
}

func writeError(w http.ResponseWriter, status int, analysisErr *types.AnalysisError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		AnalysisMethod: types.MethodError,
		Error:          analysisErr,
	})
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
