package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

type BookingHandler struct {
	svc    *booking.Service
	logger *slog.Logger
}

func NewBookingHandler(svc *booking.Service, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, logger: logger}
}

type createBookingRequest struct {
	BusinessID      string `json:"business_id"`
	StaffID         string `json:"staff_id"`
	ServiceID       string `json:"service_id"`
	ClientName      string `json:"client_name"`
	ClientPhone     string `json:"client_phone"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

type appointmentItem struct {
	AppointmentID   string `json:"appointment_id"`
	BusinessID      string `json:"business_id"`
	StaffID         string `json:"staff_id"`
	ServiceID       string `json:"service_id"`
	ClientName      string `json:"client_name"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	CancelledAt     string `json:"cancelled_at,omitempty"`
	CancelReason    string `json:"cancel_reason,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
}

type cancelBookingRequest struct {
	BusinessID    string `json:"business_id"`
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
}

type checkResponse struct {
	Available bool                   `json:"available"`
	Reason    availability.Reason    `json:"reason,omitempty"`
	Conflict  *availability.Interval `json:"conflict,omitempty"`
}

type unavailableResponse struct {
	Error    string                 `json:"error"`
	Reason   availability.Reason    `json:"reason"`
	Conflict *availability.Interval `json:"conflict,omitempty"`
}

// Slots lists the day's grid. With available_only=true only bookable starts
// are returned.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	key, date, ok := scheduleQuery(w, r)
	if !ok {
		return
	}
	duration, err := strconv.Atoi(strings.TrimSpace(q.Get("duration_minutes")))
	if err != nil {
		http.Error(w, "invalid duration_minutes", http.StatusBadRequest)
		return
	}
	availableOnly := strings.EqualFold(strings.TrimSpace(q.Get("available_only")), "true")

	res, err := h.svc.Slots(r.Context(), booking.SlotsQuery{Key: key, Date: date, DurationMinutes: duration})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]slotItem, 0, len(res.Slots))
	for _, s := range res.Slots {
		if availableOnly && !s.Available {
			continue
		}
		items = append(items, slotItem{
			StartTime: s.Start.String(),
			EndTime:   s.Start.Add(duration).String(),
			Available: s.Available,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// Check answers whether one start time can be booked and, if not, why.
func (h *BookingHandler) Check(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	key, date, ok := scheduleQuery(w, r)
	if !ok {
		return
	}
	start, err := availability.ParseTimeOfDay(strings.TrimSpace(q.Get("start_time")))
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}
	duration, err := strconv.Atoi(strings.TrimSpace(q.Get("duration_minutes")))
	if err != nil {
		http.Error(w, "invalid duration_minutes", http.StatusBadRequest)
		return
	}

	d, err := h.svc.Check(r.Context(), booking.CheckQuery{Key: key, Date: date, Start: start, DurationMinutes: duration})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, checkResponse{Available: d.Available, Reason: d.Reason, Conflict: d.Conflict})
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	date, err := time.Parse(time.DateOnly, strings.TrimSpace(req.Date))
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	start, err := availability.ParseTimeOfDay(strings.TrimSpace(req.StartTime))
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.Book(r.Context(), booking.BookRequest{
		Key: model.ScheduleKey{
			BusinessID: strings.TrimSpace(req.BusinessID),
			StaffID:    strings.TrimSpace(req.StaffID),
		},
		ServiceID:       req.ServiceID,
		ClientName:      req.ClientName,
		ClientPhone:     req.ClientPhone,
		Date:            date,
		Start:           start,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentItem(appt))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.BusinessID == "" {
		req.BusinessID = r.Header.Get("X-Business-Id")
	}

	appt, err := h.svc.Cancel(r.Context(), booking.CancelRequest{
		BusinessID:    req.BusinessID,
		AppointmentID: req.AppointmentID,
		Reason:        req.Reason,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentItem(appt))
}

// List is the staff agenda for one date, cancelled appointments included.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key, date, ok := scheduleQuery(w, r)
	if !ok {
		return
	}
	appts, err := h.svc.Agenda(r.Context(), key, date)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, appt := range appts {
		items = append(items, toAppointmentItem(appt))
	}
	writeJSON(w, http.StatusOK, items)
}

// writeError maps service errors to status codes. Unexpected errors are logged
// and hidden from the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var unavailable *booking.UnavailableError
	switch {
	case errors.As(err, &unavailable):
		writeJSON(w, http.StatusUnprocessableEntity, unavailableResponse{
			Error:    "requested time is not available",
			Reason:   unavailable.Decision.Reason,
			Conflict: unavailable.Decision.Conflict,
		})
	case errors.Is(err, booking.ErrSlotTaken):
		http.Error(w, "time slot already booked", http.StatusConflict)
	case errors.Is(err, booking.ErrNotFound):
		http.Error(w, "appointment not found", http.StatusNotFound)
	case errors.Is(err, availability.ErrInvalidInput), errors.Is(err, availability.ErrConfigurationInconsistent):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Error("request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// scheduleQuery reads business_id (or X-Business-Id), staff_id and date.
func scheduleQuery(w http.ResponseWriter, r *http.Request) (model.ScheduleKey, time.Time, bool) {
	q := r.URL.Query()
	key := model.ScheduleKey{
		BusinessID: strings.TrimSpace(q.Get("business_id")),
		StaffID:    strings.TrimSpace(q.Get("staff_id")),
	}
	if key.BusinessID == "" {
		key.BusinessID = strings.TrimSpace(r.Header.Get("X-Business-Id"))
	}
	dateStr := strings.TrimSpace(q.Get("date"))
	if !key.Valid() || dateStr == "" {
		http.Error(w, "business_id, staff_id, and date are required", http.StatusBadRequest)
		return model.ScheduleKey{}, time.Time{}, false
	}
	date, err := time.Parse(time.DateOnly, dateStr)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return model.ScheduleKey{}, time.Time{}, false
	}
	return key, date, true
}

func toAppointmentItem(appt model.Appointment) appointmentItem {
	item := appointmentItem{
		AppointmentID:   appt.ID,
		BusinessID:      appt.BusinessID,
		StaffID:         appt.StaffID,
		ServiceID:       appt.ServiceID,
		ClientName:      appt.ClientName,
		Date:            appt.Date.Format(time.DateOnly),
		StartTime:       appt.Start.String(),
		EndTime:         appt.End().String(),
		DurationMinutes: appt.DurationMinutes,
		Status:          string(appt.Status),
		CancelReason:    appt.CancelReason,
	}
	if appt.CancelledAt != nil {
		item.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
	}
	if !appt.CreatedAt.IsZero() {
		item.CreatedAt = appt.CreatedAt.UTC().Format(time.RFC3339)
	}
	return item
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
