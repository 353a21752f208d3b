package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type server struct {
	svc    *booking.Service
	logger *slog.Logger
}

// Register adds the availability service and the standard health service.
// The returned health server can be flipped to NOT_SERVING on shutdown.
func Register(grpcServer *grpc.Server, svc *booking.Service, logger *slog.Logger) *health.Server {
	grpcServer.RegisterService(&ServiceDesc, &server{svc: svc, logger: logger})

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)
	return hs
}

func (s *server) ComputeSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key, date, err := scheduleArgs(req)
	if err != nil {
		return nil, err
	}
	duration, err := intField(req, "duration_minutes")
	if err != nil {
		return nil, err
	}
	availableOnly := req.GetFields()["available_only"].GetBoolValue()

	res, err := s.svc.Slots(ctx, booking.SlotsQuery{Key: key, Date: date, DurationMinutes: duration})
	if err != nil {
		return nil, s.toStatus(err)
	}

	slots := make([]any, 0, len(res.Slots))
	for _, slot := range res.Slots {
		if availableOnly && !slot.Available {
			continue
		}
		slots = append(slots, map[string]any{
			"start_time": slot.Start.String(),
			"end_time":   slot.Start.Add(duration).String(),
			"available":  slot.Available,
		})
	}
	out, err := structpb.NewStruct(map[string]any{
		"date":             date.Format(time.DateOnly),
		"duration_minutes": duration,
		"step_minutes":     res.Step,
		"slots":            slots,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to build response")
	}
	return out, nil
}

func (s *server) CheckSlot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key, date, err := scheduleArgs(req)
	if err != nil {
		return nil, err
	}
	duration, err := intField(req, "duration_minutes")
	if err != nil {
		return nil, err
	}
	start, err := availability.ParseTimeOfDay(strings.TrimSpace(req.GetFields()["start_time"].GetStringValue()))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid start_time")
	}

	d, err := s.svc.Check(ctx, booking.CheckQuery{Key: key, Date: date, Start: start, DurationMinutes: duration})
	if err != nil {
		return nil, s.toStatus(err)
	}
	fields := map[string]any{
		"available": d.Available,
		"reason":    string(d.Reason),
	}
	if d.Conflict != nil {
		fields["conflict"] = map[string]any{
			"start": d.Conflict.Start.String(),
			"end":   d.Conflict.End.String(),
		}
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to build response")
	}
	return out, nil
}

func (s *server) toStatus(err error) error {
	if errors.Is(err, availability.ErrInvalidInput) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.Error("availability rpc failed", "err", err)
	return status.Error(codes.Internal, "internal error")
}

func scheduleArgs(req *structpb.Struct) (model.ScheduleKey, time.Time, error) {
	f := req.GetFields()
	key := model.ScheduleKey{
		BusinessID: strings.TrimSpace(f["business_id"].GetStringValue()),
		StaffID:    strings.TrimSpace(f["staff_id"].GetStringValue()),
	}
	if !key.Valid() {
		return model.ScheduleKey{}, time.Time{}, status.Error(codes.InvalidArgument, "business_id and staff_id are required")
	}
	date, err := time.Parse(time.DateOnly, strings.TrimSpace(f["date"].GetStringValue()))
	if err != nil {
		return model.ScheduleKey{}, time.Time{}, status.Error(codes.InvalidArgument, "invalid date")
	}
	return key, date, nil
}

func intField(req *structpb.Struct, name string) (int, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	n := v.GetNumberValue()
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum || n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		return 0, status.Error(codes.InvalidArgument, fmt.Sprintf("%s must be an integer", name))
	}
	return int(n), nil
}
