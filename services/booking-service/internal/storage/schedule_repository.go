package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

// ScheduleRepository reads and writes per-weekday working hours. Rows are
// returned as stored; consistency is judged by the availability engine.
type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

// GetDayConfiguration returns the stored configuration of one weekday. A
// weekday with no row is closed.
func (r *ScheduleRepository) GetDayConfiguration(ctx context.Context, key model.ScheduleKey, wd time.Weekday) (availability.DayConfiguration, error) {
	ctx, span := db.StartSpan(ctx, "schedule.get_day")
	defer span.End()

	cfg := availability.ClosedDay(wd)
	var opening, closing int
	var lunchStart, lunchEnd *int
	err := r.pool.QueryRow(ctx, `
		SELECT is_active, opening_minute, closing_minute, lunch_start_minute, lunch_end_minute
		FROM schedule_days
		WHERE business_id = $1 AND staff_id = $2 AND weekday = $3
	`, key.BusinessID, key.StaffID, int(wd)).Scan(&cfg.Active, &opening, &closing, &lunchStart, &lunchEnd)
	if errors.Is(err, pgx.ErrNoRows) {
		return cfg, nil
	}
	if err != nil {
		return availability.DayConfiguration{}, err
	}
	cfg.Opening = availability.TimeOfDay(opening)
	cfg.Closing = availability.TimeOfDay(closing)
	if lunchStart != nil && lunchEnd != nil {
		cfg.LunchBreak = &availability.Interval{
			Start: availability.TimeOfDay(*lunchStart),
			End:   availability.TimeOfDay(*lunchEnd),
		}
	}

	blocks, err := r.listBlocks(ctx, r.pool, key, []int{int(wd)})
	if err != nil {
		return availability.DayConfiguration{}, err
	}
	cfg.CustomBlocks = blocks[wd]
	return cfg, nil
}

// GetWeek loads all seven weekdays in two queries.
func (r *ScheduleRepository) GetWeek(ctx context.Context, key model.ScheduleKey) (availability.WeekSchedule, error) {
	ctx, span := db.StartSpan(ctx, "schedule.get_week")
	defer span.End()

	week := availability.NewWeekSchedule()
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, is_active, opening_minute, closing_minute, lunch_start_minute, lunch_end_minute
		FROM schedule_days
		WHERE business_id = $1 AND staff_id = $2
		ORDER BY weekday ASC
	`, key.BusinessID, key.StaffID)
	if err != nil {
		return week, err
	}
	defer rows.Close()

	for rows.Next() {
		var wd, opening, closing int
		var active bool
		var lunchStart, lunchEnd *int
		if err := rows.Scan(&wd, &active, &opening, &closing, &lunchStart, &lunchEnd); err != nil {
			return week, err
		}
		if wd < 0 || wd > 6 {
			continue
		}
		cfg := availability.DayConfiguration{
			Weekday: time.Weekday(wd),
			Active:  active,
			Opening: availability.TimeOfDay(opening),
			Closing: availability.TimeOfDay(closing),
		}
		if lunchStart != nil && lunchEnd != nil {
			cfg.LunchBreak = &availability.Interval{
				Start: availability.TimeOfDay(*lunchStart),
				End:   availability.TimeOfDay(*lunchEnd),
			}
		}
		week[wd] = cfg
	}
	if rows.Err() != nil {
		return week, rows.Err()
	}

	blocks, err := r.listBlocks(ctx, r.pool, key, []int{0, 1, 2, 3, 4, 5, 6})
	if err != nil {
		return week, err
	}
	for wd, list := range blocks {
		week[wd].CustomBlocks = list
	}
	return week, nil
}

// ReplaceDay overwrites one weekday and its custom blocks atomically.
func (r *ScheduleRepository) ReplaceDay(ctx context.Context, key model.ScheduleKey, cfg availability.DayConfiguration) error {
	ctx, span := db.StartSpan(ctx, "schedule.replace_day")
	defer span.End()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var lunchStart, lunchEnd *int
	if cfg.LunchBreak != nil {
		s, e := int(cfg.LunchBreak.Start), int(cfg.LunchBreak.End)
		lunchStart, lunchEnd = &s, &e
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO schedule_days (business_id, staff_id, weekday, is_active, opening_minute, closing_minute, lunch_start_minute, lunch_end_minute)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (business_id, staff_id, weekday) DO UPDATE
		SET is_active = EXCLUDED.is_active,
			opening_minute = EXCLUDED.opening_minute,
			closing_minute = EXCLUDED.closing_minute,
			lunch_start_minute = EXCLUDED.lunch_start_minute,
			lunch_end_minute = EXCLUDED.lunch_end_minute,
			updated_at = now()
	`, key.BusinessID, key.StaffID, int(cfg.Weekday), cfg.Active, int(cfg.Opening), int(cfg.Closing), lunchStart, lunchEnd); err != nil {
		return fmt.Errorf("upsert schedule day: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM schedule_blocks
		WHERE business_id = $1 AND staff_id = $2 AND weekday = $3
	`, key.BusinessID, key.StaffID, int(cfg.Weekday)); err != nil {
		return fmt.Errorf("clear schedule blocks: %w", err)
	}

	batch := &pgx.Batch{}
	for i, b := range cfg.CustomBlocks {
		batch.Queue(`
			INSERT INTO schedule_blocks (business_id, staff_id, weekday, position, name, start_minute, end_minute)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, key.BusinessID, key.StaffID, int(cfg.Weekday), i, b.Name, int(b.Start), int(b.End))
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert schedule blocks: %w", err)
		}
	}
	return tx.Commit(ctx)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *ScheduleRepository) listBlocks(ctx context.Context, q querier, key model.ScheduleKey, weekdays []int) (map[time.Weekday][]availability.Block, error) {
	rows, err := q.Query(ctx, `
		SELECT weekday, name, start_minute, end_minute
		FROM schedule_blocks
		WHERE business_id = $1 AND staff_id = $2 AND weekday = ANY($3)
		ORDER BY weekday ASC, position ASC
	`, key.BusinessID, key.StaffID, weekdays)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[time.Weekday][]availability.Block{}
	for rows.Next() {
		var wd, start, end int
		var name string
		if err := rows.Scan(&wd, &name, &start, &end); err != nil {
			return nil, err
		}
		out[time.Weekday(wd)] = append(out[time.Weekday(wd)], availability.Block{
			Name:     name,
			Interval: availability.Interval{Start: availability.TimeOfDay(start), End: availability.TimeOfDay(end)},
		})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
