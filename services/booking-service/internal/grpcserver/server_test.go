package grpcserver

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/grpcx"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/booking/memstore"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func startServer(t *testing.T) *Client {
	t.Helper()
	key := model.ScheduleKey{BusinessID: "3b241101-e2bb-4255-8caf-4136c566a962", StaffID: "9f8b6c52-1d3e-4a7f-b2c4-5e6d7a8b9c0d"}
	schedules := memstore.NewSchedules()
	lunch := availability.Interval{Start: availability.Clock(12, 0), End: availability.Clock(13, 0)}
	schedules.Set(key, availability.DayConfiguration{
		Weekday:    time.Wednesday,
		Active:     true,
		Opening:    availability.Clock(8, 0),
		Closing:    availability.Clock(18, 0),
		LunchBreak: &lunch,
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC)
	svc := booking.NewService(schedules, memstore.NewBookings(), logger, booking.Config{Now: func() time.Time { return now }})

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := grpcx.NewServer(logger)
	Register(srv, svc, logger)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpcx.Dial(lis.Addr().String(), grpcx.DialOptions{})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	hc, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil || hc.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected service to be serving, got %v %v", hc.GetStatus(), err)
	}
	return NewClient(conn)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("struct: %v", err)
	}
	return s
}

func TestComputeSlots(t *testing.T) {
	client := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.ComputeSlots(ctx, mustStruct(t, map[string]any{
		"business_id":      "3b241101-e2bb-4255-8caf-4136c566a962",
		"staff_id":         "9f8b6c52-1d3e-4a7f-b2c4-5e6d7a8b9c0d",
		"date":             "2026-01-28",
		"duration_minutes": 60,
	}))
	if err != nil {
		t.Fatalf("ComputeSlots: %v", err)
	}
	slots := resp.GetFields()["slots"].GetListValue().GetValues()
	if len(slots) != 20 {
		t.Fatalf("expected 20 slots, got %d", len(slots))
	}
	if got := resp.GetFields()["step_minutes"].GetNumberValue(); got != 30 {
		t.Fatalf("expected step 30, got %v", got)
	}
	lunch := slots[7].GetStructValue().GetFields()
	if lunch["start_time"].GetStringValue() != "11:30" || lunch["available"].GetBoolValue() {
		t.Fatalf("expected 11:30 unavailable, got %v", lunch)
	}
}

func TestCheckSlot(t *testing.T) {
	client := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.CheckSlot(ctx, mustStruct(t, map[string]any{
		"business_id":      "3b241101-e2bb-4255-8caf-4136c566a962",
		"staff_id":         "9f8b6c52-1d3e-4a7f-b2c4-5e6d7a8b9c0d",
		"date":             "2026-01-28",
		"start_time":       "12:30",
		"duration_minutes": 30,
	}))
	if err != nil {
		t.Fatalf("CheckSlot: %v", err)
	}
	f := resp.GetFields()
	if f["available"].GetBoolValue() || f["reason"].GetStringValue() != string(availability.ReasonLunchBreak) {
		t.Fatalf("expected lunch_break, got %v", f)
	}
	if f["conflict"].GetStructValue().GetFields()["start"].GetStringValue() != "12:00" {
		t.Fatalf("expected lunch conflict, got %v", f["conflict"])
	}
}

func TestInvalidArguments(t *testing.T) {
	client := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cases := []map[string]any{
		{"staff_id": "9f8b6c52-1d3e-4a7f-b2c4-5e6d7a8b9c0d", "date": "2026-01-28", "duration_minutes": 30},
		{"business_id": "3b241101-e2bb-4255-8caf-4136c566a962", "staff_id": "9f8b6c52-1d3e-4a7f-b2c4-5e6d7a8b9c0d", "date": "tomorrow", "duration_minutes": 30},
		{"business_id": "3b241101-e2bb-4255-8caf-4136c566a962", "staff_id": "9f8b6c52-1d3e-4a7f-b2c4-5e6d7a8b9c0d", "date": "2026-01-28", "duration_minutes": 2.5},
		{"business_id": "3b241101-e2bb-4255-8caf-4136c566a962", "staff_id": "9f8b6c52-1d3e-4a7f-b2c4-5e6d7a8b9c0d", "date": "2026-01-28", "duration_minutes": 0},
		{"business_id": "3b241101-e2bb-4255-8caf-4136c566a962", "staff_id": "9f8b6c52-1d3e-4a7f-b2c4-5e6d7a8b9c0d", "date": "2026-01-28"},
		{"business_id": "biz-1", "staff_id": "9f8b6c52-1d3e-4a7f-b2c4-5e6d7a8b9c0d", "date": "2026-01-28", "duration_minutes": 30},
	}
	for i, c := range cases {
		_, err := client.ComputeSlots(ctx, mustStruct(t, c))
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("case %d: expected InvalidArgument, got %v", i, err)
		}
	}
}
