package booking

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
)

const aggregateAppointment = "appointment"

type appointmentPayload struct {
	AppointmentID   string `json:"appointment_id"`
	BusinessID      string `json:"business_id"`
	StaffID         string `json:"staff_id"`
	ServiceID       string `json:"service_id"`
	ClientName      string `json:"client_name"`
	ClientPhone     string `json:"client_phone,omitempty"`
	Date            string `json:"date"`
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	CancelledAt     string `json:"cancelled_at,omitempty"`
	CancelReason    string `json:"cancel_reason,omitempty"`
}

func payloadOf(appt model.Appointment) appointmentPayload {
	p := appointmentPayload{
		AppointmentID:   appt.ID,
		BusinessID:      appt.BusinessID,
		StaffID:         appt.StaffID,
		ServiceID:       appt.ServiceID,
		ClientName:      appt.ClientName,
		ClientPhone:     appt.ClientPhone,
		Date:            appt.Date.Format(time.DateOnly),
		Start:           appt.Start.String(),
		End:             appt.End().String(),
		DurationMinutes: appt.DurationMinutes,
		Status:          string(appt.Status),
		CancelReason:    appt.CancelReason,
	}
	if appt.CancelledAt != nil {
		p.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
	}
	return p
}

// BookedEvent builds the outbox event written with a new appointment.
func BookedEvent(appt model.Appointment) (outbox.Event, error) {
	return appointmentEvent(outbox.TopicAppointmentBooked, appt)
}

// CancelledEvent builds the outbox event written with a cancellation.
func CancelledEvent(appt model.Appointment) (outbox.Event, error) {
	return appointmentEvent(outbox.TopicAppointmentCancelled, appt)
}

func appointmentEvent(topic string, appt model.Appointment) (outbox.Event, error) {
	payload, err := json.Marshal(payloadOf(appt))
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: aggregateAppointment,
		AggregateID:   appt.ID,
		EventType:     topic,
		Payload:       payload,
	}, nil
}
