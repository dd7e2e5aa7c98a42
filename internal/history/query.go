package history

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNotFound  = errors.New("generation not found")
	ErrAmbiguous = errors.New("generation id prefix is ambiguous")
)

// Entry is one recorded generation
type Entry struct {
	ID             string
	ConversationID int64
	Question       string
	CreatedAt      time.Time
	Answers        []Answer
}

// Answer is the final state of one model in a generation
type Answer struct {
	ModelID   string
	ModelName string
	Brand     string
	State     string
	Content   string
	Err       string
}

// List returns the most recent generations without their answers
func (r *Recorder) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, conversation_id, question, created_at FROM generations ORDER BY created_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query generations")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.Question, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan generation")
		}
		e.CreatedAt = e.CreatedAt.Local()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns one generation with its answers. id may be a unique prefix.
func (r *Recorder) Get(ctx context.Context, id string) (*Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, conversation_id, question, created_at FROM generations WHERE starts_with(id, ?) LIMIT 2`,
		id,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query generation")
	}
	var found []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.Question, &e.CreatedAt); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan generation")
		}
		found = append(found, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, ErrNotFound
	case 2:
		return nil, ErrAmbiguous
	}

	e := found[0]
	e.CreatedAt = e.CreatedAt.Local()
	e.Answers, err = r.answers(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Recorder) answers(ctx context.Context, id string) ([]Answer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT model_id, model_name, brand, state, content, error FROM answers WHERE generation_id = ? ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query answers")
	}
	defer rows.Close()

	var out []Answer
	for rows.Next() {
		var a Answer
		var errText sql.NullString
		if err := rows.Scan(&a.ModelID, &a.ModelName, &a.Brand, &a.State, &a.Content, &errText); err != nil {
			return nil, errors.Wrap(err, "failed to scan answer")
		}
		a.Err = errText.String
		out = append(out, a)
	}
	return out, rows.Err()
}
