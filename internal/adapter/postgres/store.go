package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playsquare/reviewdesk/internal/domain"
	"github.com/playsquare/reviewdesk/internal/domain/event"
	"github.com/playsquare/reviewdesk/internal/domain/user"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// eventColumns is the SELECT column list for game_events queries.
const eventColumns = `id, name, description, owner_id, start_at, end_at, confidential,
	pm_reviewer_id, dev_reviewer_id, qa_reviewer_id, cs_reviewer_id,
	pm_status, dev_status, qa_status, cs_status,
	pm_reviewed_at, dev_reviewed_at, qa_reviewed_at, cs_reviewed_at,
	final_status, approved_at, version, review_history, created_at, updated_at`

// scanGameEvent scans one game_events row.
func scanGameEvent(row scannable) (*event.GameEvent, error) {
	var ev event.GameEvent
	var history []byte
	err := row.Scan(
		&ev.ID, &ev.Name, &ev.Description, &ev.OwnerID, &ev.StartAt, &ev.EndAt, &ev.Confidential,
		&ev.Reviewers.PM, &ev.Reviewers.Dev, &ev.Reviewers.QA, &ev.Reviewers.CS,
		&ev.Statuses.PM, &ev.Statuses.Dev, &ev.Statuses.QA, &ev.Statuses.CS,
		&ev.ReviewedAt.PM, &ev.ReviewedAt.Dev, &ev.ReviewedAt.QA, &ev.ReviewedAt.CS,
		&ev.FinalStatus, &ev.ApprovedAt, &ev.Version, &history, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &ev.History); err != nil {
			return nil, fmt.Errorf("unmarshal review history: %w", err)
		}
	}
	return &ev, nil
}

func (s *Store) CreateEvent(ctx context.Context, ev *event.GameEvent) error {
	history, err := json.Marshal(ev.History)
	if err != nil {
		return fmt.Errorf("marshal review history: %w", err)
	}
	if ev.History == nil {
		history = []byte("[]")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO game_events (id, name, description, owner_id, start_at, end_at, confidential,
			pm_reviewer_id, dev_reviewer_id, qa_reviewer_id, cs_reviewer_id,
			pm_status, dev_status, qa_status, cs_status,
			final_status, approved_at, version, review_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		ev.ID, ev.Name, ev.Description, ev.OwnerID, ev.StartAt, ev.EndAt, ev.Confidential,
		ev.Reviewers.PM, ev.Reviewers.Dev, ev.Reviewers.QA, ev.Reviewers.CS,
		ev.Statuses.PM, ev.Statuses.Dev, ev.Statuses.QA, ev.Statuses.CS,
		ev.FinalStatus, ev.ApprovedAt, ev.Version, history, ev.CreatedAt, ev.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*event.GameEvent, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM game_events WHERE id = $1`, eventColumns), id)

	ev, err := scanGameEvent(row)
	if err != nil {
		return nil, notFoundWrap(err, "get event %s", id)
	}
	return ev, nil
}

// ListEvents returns the filtered page of events visible to the viewer plus
// the total match count. Non-admins never see confidential events they do
// not own or review.
func (s *Store) ListEvents(ctx context.Context, q event.Query, viewer *user.User) ([]event.GameEvent, int, error) {
	var conditions []string
	var args []any
	argIdx := 1

	addArg := func(cond string, val any) {
		conditions = append(conditions, fmt.Sprintf(cond, argIdx))
		args = append(args, val)
		argIdx++
	}

	if !viewer.IsAdmin() {
		conditions = append(conditions, fmt.Sprintf(
			`(NOT confidential OR owner_id = $%d OR pm_reviewer_id = $%d OR dev_reviewer_id = $%d OR qa_reviewer_id = $%d OR cs_reviewer_id = $%d)`,
			argIdx, argIdx, argIdx, argIdx, argIdx))
		args = append(args, viewer.ID)
		argIdx++
	}
	if q.OwnerID != "" {
		addArg("owner_id = $%d", q.OwnerID)
	}
	if q.FinalStatus != "" {
		addArg("final_status = $%d", q.FinalStatus)
	}
	if q.Confidential != nil {
		addArg("confidential = $%d", *q.Confidential)
	}
	if q.StartFrom != nil {
		addArg("start_at >= $%d", *q.StartFrom)
	}
	if q.EndTo != nil {
		addArg("end_at <= $%d", *q.EndTo)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s, COUNT(*) OVER() AS total
		FROM game_events %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, eventColumns, where, argIdx, argIdx+1)
	args = append(args, q.Limit, (q.Page-1)*q.Limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.GameEvent
	var total int
	for rows.Next() {
		var ev event.GameEvent
		var history []byte
		err := rows.Scan(
			&ev.ID, &ev.Name, &ev.Description, &ev.OwnerID, &ev.StartAt, &ev.EndAt, &ev.Confidential,
			&ev.Reviewers.PM, &ev.Reviewers.Dev, &ev.Reviewers.QA, &ev.Reviewers.CS,
			&ev.Statuses.PM, &ev.Statuses.Dev, &ev.Statuses.QA, &ev.Statuses.CS,
			&ev.ReviewedAt.PM, &ev.ReviewedAt.Dev, &ev.ReviewedAt.QA, &ev.ReviewedAt.CS,
			&ev.FinalStatus, &ev.ApprovedAt, &ev.Version, &history, &ev.CreatedAt, &ev.UpdatedAt,
			&total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		if len(history) > 0 {
			if err := json.Unmarshal(history, &ev.History); err != nil {
				return nil, 0, fmt.Errorf("unmarshal review history: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, total, rows.Err()
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM game_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete event %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// UpdateEventGuarded applies change in one conditional UPDATE. The WHERE
// clause carries every guard predicate, so a row that moved under the caller
// matches nothing and no field is touched. The version bump, updated_at
// refresh, field sets, and history append all land in the same statement.
func (s *Store) UpdateEventGuarded(ctx context.Context, id string, guard event.Guard, change event.Change) (*event.GameEvent, error) {
	sets := []string{"version = version + 1", "updated_at = NOW()"}
	args := []any{id}
	argIdx := 2

	addSet := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if change.Name != nil {
		addSet("name", *change.Name)
	}
	if change.Description != nil {
		addSet("description", *change.Description)
	}
	if change.StartAt != nil {
		addSet("start_at", *change.StartAt)
	}
	if change.EndAt != nil {
		addSet("end_at", *change.EndAt)
	}
	if change.Confidential != nil {
		addSet("confidential", *change.Confidential)
	}
	if change.Reviewers != nil {
		addSet("pm_reviewer_id", change.Reviewers.PM)
		addSet("dev_reviewer_id", change.Reviewers.Dev)
		addSet("qa_reviewer_id", change.Reviewers.QA)
		addSet("cs_reviewer_id", change.Reviewers.CS)
	}
	for _, sc := range change.Statuses {
		addSet(statusColumn(sc.Channel), sc.Status)
	}
	for _, rc := range change.ReviewedAt {
		addSet(reviewedAtColumn(rc.Channel), rc.At)
	}
	if change.FinalStatus != nil {
		addSet("final_status", *change.FinalStatus)
	}
	if change.SetApprovedAt {
		addSet("approved_at", change.ApprovedAt)
	}
	if change.Append != nil {
		entry, err := json.Marshal(change.Append)
		if err != nil {
			return nil, fmt.Errorf("marshal audit record: %w", err)
		}
		sets = append(sets, fmt.Sprintf("review_history = review_history || $%d::jsonb", argIdx))
		args = append(args, entry)
		argIdx++
	}

	conditions := []string{"id = $1"}
	if guard.ExpectedVersion != nil {
		conditions = append(conditions, fmt.Sprintf("version = $%d", argIdx))
		args = append(args, *guard.ExpectedVersion)
		argIdx++
	}
	for _, sg := range guard.Statuses {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", statusColumn(sg.Channel), argIdx))
		args = append(args, sg.Status)
		argIdx++
	}

	query := fmt.Sprintf(`UPDATE game_events SET %s WHERE %s RETURNING %s`,
		strings.Join(sets, ", "), strings.Join(conditions, " AND "), eventColumns)

	row := s.pool.QueryRow(ctx, query, args...)
	ev, err := scanGameEvent(row)
	if err == nil {
		return ev, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update event %s: %w", id, err)
	}

	// No row matched: the event is either gone or was modified since the
	// caller read it.
	var exists bool
	if checkErr := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM game_events WHERE id = $1)`, id).Scan(&exists); checkErr != nil {
		return nil, fmt.Errorf("update event %s: %w", id, checkErr)
	}
	if !exists {
		return nil, fmt.Errorf("update event %s: %w", id, domain.ErrNotFound)
	}
	return nil, fmt.Errorf("update event %s: %w", id, domain.ErrConflict)
}
