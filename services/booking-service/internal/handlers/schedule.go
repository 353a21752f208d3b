package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

type ScheduleHandler struct {
	svc    *booking.Service
	logger *slog.Logger
}

func NewScheduleHandler(svc *booking.Service, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, logger: logger}
}

type scheduleDay struct {
	availability.DayConfiguration
	OpenWindows []availability.Interval `json:"open_windows"`
}

type scheduleResponse struct {
	BusinessID string        `json:"business_id"`
	StaffID    string        `json:"staff_id"`
	Days       []scheduleDay `json:"days"`
}

// ServeHTTP handles GET (whole week) and PUT (one weekday).
func (h *ScheduleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := model.ScheduleKey{
		BusinessID: strings.TrimSpace(r.URL.Query().Get("business_id")),
		StaffID:    strings.TrimSpace(r.URL.Query().Get("staff_id")),
	}
	if key.BusinessID == "" {
		key.BusinessID = strings.TrimSpace(r.Header.Get("X-Business-Id"))
	}
	if !key.Valid() {
		http.Error(w, "business_id and staff_id are required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, key)
	case http.MethodPut:
		h.put(w, r, key)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ScheduleHandler) get(w http.ResponseWriter, r *http.Request, key model.ScheduleKey) {
	week, err := h.svc.Schedule(r.Context(), key)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp := scheduleResponse{BusinessID: key.BusinessID, StaffID: key.StaffID, Days: make([]scheduleDay, 0, len(week))}
	for _, cfg := range week {
		windows := cfg.OpenWindows()
		if windows == nil {
			windows = []availability.Interval{}
		}
		resp.Days = append(resp.Days, scheduleDay{DayConfiguration: cfg, OpenWindows: windows})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ScheduleHandler) put(w http.ResponseWriter, r *http.Request, key model.ScheduleKey) {
	var cfg availability.DayConfiguration
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := h.svc.UpdateDay(r.Context(), key, cfg); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleDay{DayConfiguration: cfg, OpenWindows: cfg.OpenWindows()})
}
