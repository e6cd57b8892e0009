package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	"github.com/etnz/folio/renderer"
	"github.com/go-chi/chi/v5"
)

type portfolioPayload struct {
	Name string `json:"name"`
}

type tradePayload struct {
	Ticker   string         `json:"ticker"`
	Quantity folio.Quantity `json:"quantity"`
	Date     date.Date      `json:"date"` // defaults to today
}

func (h *handler) getPortfolios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"portfolios": h.svc.Portfolios()})
}

func (h *handler) createPortfolio(w http.ResponseWriter, r *http.Request) {
	var payload portfolioPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.CreatePortfolio(payload.Name); err != nil {
		writeFolioError(w, err)
		return
	}
	if !h.changed(w, r) {
		return
	}
	writeJSON(w, http.StatusCreated, payload)
}

func (h *handler) getTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.Transactions(chi.URLParam(r, "name"))
	if err != nil {
		writeFolioError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (h *handler) addTransaction(w http.ResponseWriter, r *http.Request) {
	var tx folio.Transaction
	if err := decodeJSON(r, &tx); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Record(chi.URLParam(r, "name"), tx); err != nil {
		writeFolioError(w, err)
		return
	}
	if !h.changed(w, r) {
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// trade handles buy and sell at the recorded closing price.
func (h *handler) trade(kind folio.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload tradePayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if payload.Date.IsZero() {
			payload.Date = date.Today()
		}
		name := chi.URLParam(r, "name")
		record := h.svc.RecordBuy
		if kind == folio.Sell {
			record = h.svc.RecordSell
		}
		tx, err := record(r.Context(), name, payload.Ticker, payload.Quantity, payload.Date)
		if err != nil {
			writeFolioError(w, err)
			return
		}
		if !h.changed(w, r) {
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	}
}

func (h *handler) getComposition(w http.ResponseWriter, r *http.Request) {
	on, ok := dateParam(w, r, "date")
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	composition, err := h.svc.Composition(name, on)
	if err != nil {
		writeFolioError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"portfolio": name, "date": on, "composition": composition})
}

func (h *handler) getCostBasis(w http.ResponseWriter, r *http.Request) {
	on, ok := dateParam(w, r, "date")
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	basis, err := h.svc.CostBasis(name, on)
	if err != nil {
		writeFolioError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"portfolio": name, "date": on, "cost_basis": basis})
}

func (h *handler) getValue(w http.ResponseWriter, r *http.Request) {
	on, ok := dateParam(w, r, "date")
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	value, err := h.svc.TotalValue(r.Context(), name, on)
	if err != nil {
		writeFolioError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"portfolio": name, "date": on, "value": value})
}

func (h *handler) getHolding(w http.ResponseWriter, r *http.Request) {
	on, ok := dateParam(w, r, "date")
	if !ok {
		return
	}
	holding, err := h.svc.Holding(r.Context(), chi.URLParam(r, "name"), on)
	if err != nil {
		writeFolioError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holding)
}

func (h *handler) runDCA(w http.ResponseWriter, r *http.Request) {
	var strategy folio.Strategy
	if err := decodeJSON(r, &strategy); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	strategy.Portfolio = chi.URLParam(r, "name")
	exec, err := h.svc.RunDCAStrategy(r.Context(), strategy)
	if err != nil {
		writeFolioError(w, err)
		return
	}
	if !h.changed(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

// getGain reports the change on 'date', or over [start, end] when both are given.
func (h *handler) getGain(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	q := r.URL.Query()
	var (
		change *folio.Change
		err    error
	)
	if q.Get("start") != "" || q.Get("end") != "" {
		start, end, ok := rangeParams(w, r)
		if !ok {
			return
		}
		change, err = h.svc.GainOrLoseOverPeriod(r.Context(), ticker, start, end)
	} else {
		on, ok := dateParam(w, r, "date")
		if !ok {
			return
		}
		change, err = h.svc.GainOrLose(r.Context(), ticker, on)
	}
	if err != nil {
		writeFolioError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

func (h *handler) getMovingAverage(w http.ResponseWriter, r *http.Request) {
	on, ok := dateParam(w, r, "date")
	if !ok {
		return
	}
	window, ok := intParam(w, r, "window")
	if !ok {
		return
	}
	avg, err := h.svc.MovingAverage(r.Context(), chi.URLParam(r, "ticker"), window, on)
	if err != nil {
		writeFolioError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, avg)
}

func (h *handler) getCrossovers(w http.ResponseWriter, r *http.Request) {
	start, end, ok := rangeParams(w, r)
	if !ok {
		return
	}
	crossovers, err := h.svc.CrossoverOverPeriod(r.Context(), chi.URLParam(r, "ticker"), start, end)
	if err != nil {
		writeFolioError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"crossovers": crossovers})
}

func (h *handler) getMovingCrossovers(w http.ResponseWriter, r *http.Request) {
	start, end, ok := rangeParams(w, r)
	if !ok {
		return
	}
	short, ok := intParam(w, r, "short")
	if !ok {
		return
	}
	long, ok := intParam(w, r, "long")
	if !ok {
		return
	}
	crossovers, err := h.svc.MovingCrossoversOverPeriod(r.Context(), chi.URLParam(r, "ticker"), start, end, short, long)
	if err != nil {
		writeFolioError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"crossovers": crossovers})
}

// getTrend returns the closes of a period with their moving average, as JSON
// or as a PNG chart with format=png. The window defaults to the baseline one.
func (h *handler) getTrend(w http.ResponseWriter, r *http.Request) {
	start, end, ok := rangeParams(w, r)
	if !ok {
		return
	}
	window := 0
	if r.URL.Query().Get("window") != "" {
		if window, ok = intParam(w, r, "window"); !ok {
			return
		}
	}
	trend, err := h.svc.Trend(r.Context(), chi.URLParam(r, "ticker"), start, end, window)
	if err != nil {
		writeFolioError(w, err)
		return
	}
	if r.URL.Query().Get("format") != "png" {
		writeJSON(w, http.StatusOK, trend)
		return
	}
	var buf bytes.Buffer
	if err := renderer.TrendChart(&buf, trend); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.log.Warn().Err(err).Msg("cannot write chart")
	}
}

// dateParam parses a date query parameter, today if absent.
func dateParam(w http.ResponseWriter, r *http.Request, key string) (date.Date, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return date.Today(), true
	}
	on, err := date.Parse(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s: %v", key, err))
		return date.Date{}, false
	}
	return on, true
}

func rangeParams(w http.ResponseWriter, r *http.Request) (start, end date.Date, ok bool) {
	q := r.URL.Query()
	if q.Get("start") == "" || q.Get("end") == "" {
		writeError(w, http.StatusBadRequest, "start and end are required")
		return start, end, false
	}
	if start, ok = dateParam(w, r, "start"); !ok {
		return
	}
	end, ok = dateParam(w, r, "end")
	return
}

func intParam(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	i, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s: %q", key, r.URL.Query().Get(key)))
		return 0, false
	}
	return i, true
}
