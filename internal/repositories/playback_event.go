package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

const playbackEventColumns = `id, sequence, kind, item_title, source, play_reason, player_state, error, created_at, updated_at, deleted_at`

// PlaybackEventRepository implements models.Repository[*models.PlaybackEvent] for playback history.
type PlaybackEventRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.PlaybackEvent] = (*PlaybackEventRepository)(nil)

// NewPlaybackEventRepository creates a new PlaybackEventRepository with the given database connection
func NewPlaybackEventRepository(db *sql.DB) *PlaybackEventRepository {
	return &PlaybackEventRepository{db: db}
}

// Create inserts a new [models.PlaybackEvent] with a generated ID and sequence
func (r *PlaybackEventRepository) Create(event *models.PlaybackEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: validation failed: %w", shared.ErrInvalidInput, err)
	}

	id := shared.GenerateID()
	var sequence int

	query := `
		INSERT INTO playback_events (id, sequence, kind, item_title, source, play_reason, player_state, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := inTx(r.db, func(tx *sql.Tx) error {
		var err error
		if sequence, err = NextSequence(tx, "playback_events"); err != nil {
			return fmt.Errorf("failed to generate sequence: %w", err)
		}

		_, err = tx.Exec(query,
			id,
			sequence,
			string(event.Kind()),
			event.ItemTitle(),
			event.Source(),
			string(event.Reason()),
			string(event.State()),
			event.Error(),
			event.CreatedAt(),
			event.UpdatedAt(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert playback event: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	event.SetID(id)
	event.SetSequence(sequence)
	return nil
}

// Get retrieves an event by ID, excluding soft-deleted events
func (r *PlaybackEventRepository) Get(id string) (*models.PlaybackEvent, error) {
	query := `SELECT ` + playbackEventColumns + ` FROM playback_events WHERE id = ? AND deleted_at IS NULL`
	return scanPlaybackEvent(r.db.QueryRow(query, id))
}

// Update rewrites the mutable fields of an event
func (r *PlaybackEventRepository) Update(event *models.PlaybackEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: validation failed: %w", shared.ErrInvalidInput, err)
	}

	now := time.Now()
	event.SetUpdatedAt(now)

	query := `
		UPDATE playback_events
		SET player_state = ?, error = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, string(event.State()), event.Error(), now, event.ID())
	if err != nil {
		return fmt.Errorf("failed to update playback event: %w", err)
	}
	return expectOneRow(result, event.ID())
}

// Delete soft-deletes an event by ID
func (r *PlaybackEventRepository) Delete(id string) error {
	query := `
		UPDATE playback_events
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playback event: %w", err)
	}
	return expectOneRow(result, id)
}

// List retrieves events matching criteria in sequence order, excluding soft-deleted events.
//
// Supported criteria: "kind" (string), "item" (string), "since" (time.Time) and "limit" (int).
// A limit keeps the most recent events.
func (r *PlaybackEventRepository) List(criteria map[string]any) ([]*models.PlaybackEvent, error) {
	query := `SELECT ` + playbackEventColumns + ` FROM playback_events WHERE deleted_at IS NULL`
	args := []any{}

	if kind, ok := criteria["kind"].(string); ok && kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}

	if item, ok := criteria["item"].(string); ok && item != "" {
		query += " AND item_title = ?"
		args = append(args, item)
	}

	if since, ok := criteria["since"].(time.Time); ok && !since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, since)
	}

	limit, limited := criteria["limit"].(int)
	limited = limited && limit > 0
	if limited {
		query += " ORDER BY sequence DESC LIMIT ?"
		args = append(args, limit)
	} else {
		query += " ORDER BY sequence ASC"
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playback events: %w", err)
	}
	defer rows.Close()

	var events []*models.PlaybackEvent
	for rows.Next() {
		event, err := scanPlaybackEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	if limited {
		slices.Reverse(events)
	}
	return events, nil
}

// Count returns the number of live events.
func (r *PlaybackEventRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM playback_events WHERE deleted_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count playback events: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanPlaybackEvent scans a single row from [sql.Row] or [sql.Rows] into a [models.PlaybackEvent]
func scanPlaybackEvent(row scanner) (*models.PlaybackEvent, error) {
	var (
		id          string
		sequence    int
		kind        string
		itemTitle   string
		source      string
		playReason  string
		playerState string
		errText     string
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := row.Scan(&id, &sequence, &kind, &itemTitle, &source, &playReason, &playerState, &errText, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playback event: %w", err)
	}

	event := models.RestorePlaybackEvent(
		id,
		sequence,
		models.PlaybackEventKind(kind),
		itemTitle,
		source,
		models.PlayReason(playReason),
		models.PlayerState(playerState),
		errText,
		createdAt,
		updatedAt,
	)
	if deletedAt.Valid {
		event.SetDeletedAt(&deletedAt.Time)
	}
	return event, nil
}

func expectOneRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrEventNotFound, id)
	}
	return nil
}
