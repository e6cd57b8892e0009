// Package api exposes the folio operations as a JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/etnz/folio"
	"github.com/etnz/folio/renderer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter builds the HTTP API router.
//
// onChange, if not nil, is called after every successful mutation, typically
// to persist the portfolios.
func NewRouter(svc *folio.Service, log zerolog.Logger, onChange func(context.Context) error) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogging(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	h := &handler{svc: svc, log: log, onChange: onChange}

	r.Get("/api/health", h.health)

	// Portfolios
	r.Get("/api/portfolios", h.getPortfolios)
	r.Post("/api/portfolios", h.createPortfolio)
	r.Route("/api/portfolios/{name}", func(r chi.Router) {
		r.Get("/transactions", h.getTransactions)
		r.Post("/transactions", h.addTransaction)
		r.Post("/buy", h.trade(folio.Buy))
		r.Post("/sell", h.trade(folio.Sell))
		r.Get("/composition", h.getComposition)
		r.Get("/cost-basis", h.getCostBasis)
		r.Get("/value", h.getValue)
		r.Get("/holding", h.getHolding)
		r.Post("/dca", h.runDCA)
	})

	// Analytics
	r.Route("/api/securities/{ticker}", func(r chi.Router) {
		r.Get("/gain", h.getGain)
		r.Get("/moving-average", h.getMovingAverage)
		r.Get("/crossovers", h.getCrossovers)
		r.Get("/moving-crossovers", h.getMovingCrossovers)
		r.Get("/trend", h.getTrend)
	})

	return r
}

type handler struct {
	svc      *folio.Service
	log      zerolog.Logger
	onChange func(context.Context) error
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// changed persists a mutation, and reports whether the response can be sent.
func (h *handler) changed(w http.ResponseWriter, r *http.Request) bool {
	if h.onChange == nil {
		return true
	}
	if err := h.onChange(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("cannot persist portfolios")
		writeError(w, http.StatusInternalServerError, "cannot persist portfolios")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeFolioError writes err with the status matching its kind.
func writeFolioError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), renderer.Message(err))
}

// statusFor maps folio errors to HTTP status codes.
func statusFor(err error) int {
	var (
		notFound     *folio.PortfolioNotFoundError
		unknown      *folio.UnknownTickerError
		duplicate    *folio.DuplicatePortfolioError
		unavailable  *folio.PriceUnavailableError
		invalidName  *folio.InvalidPortfolioNameError
		insufficient *folio.InsufficientHoldingsError
		amount       *folio.InvalidAmountError
		weight       *folio.InvalidWeightError
		strategy     *folio.InvalidStrategyError
		window       *folio.InvalidWindowError
		period       *folio.InvalidRangeError
		history      *folio.InsufficientHistoryError
	)
	switch {
	case errors.As(err, &strategy), errors.As(err, &invalidName), errors.As(err, &insufficient),
		errors.As(err, &amount), errors.As(err, &weight), errors.As(err, &window),
		errors.As(err, &period), errors.As(err, &history):
		return http.StatusUnprocessableEntity
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &unknown):
		// blank tickers are a validation problem, not a missing resource.
		if unknown.Ticker == "" {
			return http.StatusUnprocessableEntity
		}
		return http.StatusNotFound
	case errors.As(err, &duplicate):
		return http.StatusConflict
	case errors.As(err, &unavailable):
		return http.StatusFailedDependency
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func requestLogging(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(wrapped, r)

			status := wrapped.Status()
			if status == 0 {
				status = http.StatusOK
			}
			var event *zerolog.Event
			switch {
			case status >= http.StatusInternalServerError:
				event = log.Error()
			case status >= http.StatusBadRequest:
				event = log.Warn()
			default:
				event = log.Info()
			}
			event.
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", wrapped.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request completed")
		})
	}
}
