package handler

import (
	"encoding/json"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"

	"papertrader/src/calendar"
	"papertrader/src/engine"
	"papertrader/src/model"
	"papertrader/src/repository"
)

// EngineHandler exposes the decision pipeline over HTTP. The API layer
// is a thin shell: parsing, delegation and encoding only.
type EngineHandler struct {
	engine    *engine.Engine
	positions *repository.PositionRepository
	audits    *repository.RankAuditRepository
	decisions *repository.DecisionRepository
}

func NewEngineHandler(eng *engine.Engine, positions *repository.PositionRepository, audits *repository.RankAuditRepository, decisions *repository.DecisionRepository) *EngineHandler {
	return &EngineHandler{
		engine:    eng,
		positions: positions,
		audits:    audits,
		decisions: decisions,
	}
}

type runRequest struct {
	Date        string `json:"date,omitempty"`
	Interval    string `json:"interval,omitempty"`
	ForceReplan bool   `json:"force_replan,omitempty"`
}

// parseRun tolerates an empty body; every field is optional.
func parseRun(r *http.Request) (runRequest, error) {
	var req runRequest
	if r.Body == nil || r.ContentLength == 0 {
		return req, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, err
	}
	return req, nil
}

func (req runRequest) date() (time.Time, error) {
	if req.Date == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation("2006-01-02", req.Date, calendar.Location())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

// RunTick triggers one decision pass.
func (h *EngineHandler) RunTick() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseRun(r)
		if err != nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		date, err := req.date()
		if err != nil {
			http.Error(w, "Invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		summary, err := h.engine.RunTick(r.Context(), date, req.Interval)
		if err != nil {
			logger.WithError(err).Error("run tick failed")
			http.Error(w, "Tick failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// ExitDay force-closes all open positions.
func (h *EngineHandler) ExitDay() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseRun(r)
		if err != nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		date, err := req.date()
		if err != nil {
			http.Error(w, "Invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		summary, err := h.engine.ExitDay(r.Context(), date)
		if err != nil {
			logger.WithError(err).Error("exit day failed")
			http.Error(w, "Exit failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// PlanDay ranks the universe and pins the day's watchlist.
func (h *EngineHandler) PlanDay() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseRun(r)
		if err != nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		date, err := req.date()
		if err != nil {
			http.Error(w, "Invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		entries, err := h.engine.PlanDay(r.Context(), date, req.ForceReplan)
		if err != nil {
			logger.WithError(err).Error("plan day failed")
			http.Error(w, "Plan failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"watchlist": entries})
	}
}

// SwingCycle runs the daily swing pass.
func (h *EngineHandler) SwingCycle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseRun(r)
		if err != nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		date, err := req.date()
		if err != nil {
			http.Error(w, "Invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		summary, err := h.engine.SwingCycle(r.Context(), date)
		if err != nil {
			logger.WithError(err).Error("swing cycle failed")
			http.Error(w, "Swing cycle failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// PositionsToday lists the day's positions, open and closed.
func (h *EngineHandler) PositionsToday() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		today := calendar.Today()

		byDate, err := h.positions.FindByDate(r.Context(), today)
		if err != nil {
			http.Error(w, "Failed to list positions", http.StatusInternalServerError)
			return
		}
		open, err := h.positions.FindOpen(r.Context())
		if err != nil {
			http.Error(w, "Failed to list positions", http.StatusInternalServerError)
			return
		}

		// Older open positions carried across days still belong in the
		// report.
		seen := make(map[uint]bool, len(byDate))
		for _, pos := range byDate {
			seen[pos.ID] = true
		}
		for _, pos := range open {
			if !seen[pos.ID] {
				byDate = append(byDate, pos)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"date":      today.Format("2006-01-02"),
			"positions": byDate,
		})
	}
}

// AuditToday returns the day's ranking audit and decisions.
func (h *EngineHandler) AuditToday() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		today := calendar.Today()

		audits, err := h.audits.FindForDate(r.Context(), today, model.ModeIntraday)
		if err != nil {
			http.Error(w, "Failed to list rank audits", http.StatusInternalServerError)
			return
		}
		decisions, err := h.decisions.FindDecisionsByDate(r.Context(), today)
		if err != nil {
			http.Error(w, "Failed to list decisions", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"date":      today.Format("2006-01-02"),
			"ranks":     audits,
			"decisions": decisions,
		})
	}
}
