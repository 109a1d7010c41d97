package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

const scheduleColumns = "schedule_id, preset_id, chat_id, user_id, cron, last_run, active, deleted"

// ScheduleStore reads and mutates the schedules table. Rows are only ever
// soft-deleted via the deleted flag.
type ScheduleStore struct {
	pool dbPool
}

// NewScheduleStore creates a ScheduleStore over an existing pool.
func NewScheduleStore(pool dbPool) (*ScheduleStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ScheduleStore{pool: pool}, nil
}

// Add inserts a schedule row.
func (s *ScheduleStore) Add(ctx context.Context, entry supervisor.ScheduleEntry) error {
	const query = `
INSERT INTO schedules (schedule_id, preset_id, chat_id, user_id, cron, last_run, active, deleted)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.pool.Exec(ctx, query,
		entry.ScheduleID,
		entry.PresetID,
		entry.ChatID,
		entry.UserID,
		entry.Cron,
		entry.LastRun,
		entry.Active,
		entry.Deleted,
	)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// List returns every schedule row.
func (s *ScheduleStore) List(ctx context.Context) ([]supervisor.ScheduleEntry, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+scheduleColumns+" FROM schedules")
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	return scanSchedules(rows)
}

// ListByChat returns the schedule rows belonging to one chat.
func (s *ScheduleStore) ListByChat(ctx context.Context, chatID int64) ([]supervisor.ScheduleEntry, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+scheduleColumns+" FROM schedules WHERE chat_id = $1", chatID)
	if err != nil {
		return nil, fmt.Errorf("query schedules by chat: %w", err)
	}
	return scanSchedules(rows)
}

// Get returns one schedule row by its identifier.
func (s *ScheduleStore) Get(ctx context.Context, scheduleID uuid.UUID) (supervisor.ScheduleEntry, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+scheduleColumns+" FROM schedules WHERE schedule_id = $1", scheduleID)
	var entry supervisor.ScheduleEntry
	if err := scanSchedule(row, &entry); err != nil {
		return supervisor.ScheduleEntry{}, fmt.Errorf("get schedule: %w", err)
	}
	return entry, nil
}

// Update writes only the named fields of the entry. Unknown field names are
// rejected rather than silently ignored.
func (s *ScheduleStore) Update(ctx context.Context, entry supervisor.ScheduleEntry, fields []string) error {
	if len(fields) == 0 {
		return nil
	}

	builder := sq.Update("schedules").PlaceholderFormat(sq.Dollar)
	for _, field := range fields {
		switch field {
		case "preset_id":
			builder = builder.Set("preset_id", entry.PresetID)
		case "cron":
			builder = builder.Set("cron", entry.Cron)
		case "last_run":
			builder = builder.Set("last_run", entry.LastRun)
		case "active":
			builder = builder.Set("active", entry.Active)
		case "deleted":
			builder = builder.Set("deleted", entry.Deleted)
		default:
			return fmt.Errorf("unknown schedule field %q", field)
		}
	}
	query, args, err := builder.Where(sq.Eq{"schedule_id": entry.ScheduleID}).ToSql()
	if err != nil {
		return fmt.Errorf("build schedule update: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

func scanSchedules(rows pgx.Rows) ([]supervisor.ScheduleEntry, error) {
	defer rows.Close()
	var out []supervisor.ScheduleEntry
	for rows.Next() {
		var entry supervisor.ScheduleEntry
		if err := scanSchedule(rows, &entry); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return out, nil
}

func scanSchedule(row pgx.Row, entry *supervisor.ScheduleEntry) error {
	return row.Scan(
		&entry.ScheduleID,
		&entry.PresetID,
		&entry.ChatID,
		&entry.UserID,
		&entry.Cron,
		&entry.LastRun,
		&entry.Active,
		&entry.Deleted,
	)
}
