package repository

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"docctl-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

// QueryStateRepository remembers the last list filter a user submitted on
// each page, one CouchDB document per (user, page).
type QueryStateRepository interface {
	Load(ctx context.Context, userID, pageKey string) (*domain.QueryState, error)
	Save(ctx context.Context, state *domain.QueryState) error
	Clear(ctx context.Context, userID, pageKey string) error
}

type queryStateRepository struct {
	db *kivik.DB
}

func NewQueryStateRepository(client *kivik.Client, dbName string) QueryStateRepository {
	return &queryStateRepository{
		db: client.DB(dbName),
	}
}

func queryStateID(userID, pageKey string) string {
	return fmt.Sprintf("querystate:%s:%s", userID, pageKey)
}

func (r *queryStateRepository) Load(ctx context.Context, userID, pageKey string) (*domain.QueryState, error) {
	var state domain.QueryState
	if err := r.db.Get(ctx, queryStateID(userID, pageKey)).ScanDoc(&state); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load query state: %w", err)
	}
	return &state, nil
}

// Save upserts the state, picking up the current revision when the caller
// does not carry one.
func (r *queryStateRepository) Save(ctx context.Context, state *domain.QueryState) error {
	state.ID = queryStateID(state.UserID, state.PageKey)
	state.DocType = "query_state"
	state.UpdatedAt = time.Now()

	if state.Rev == "" {
		existing, err := r.Load(ctx, state.UserID, state.PageKey)
		if err != nil && err != ErrNotFound {
			return err
		}
		if existing != nil {
			state.Rev = existing.Rev
		}
	}

	rev, err := r.db.Put(ctx, state.ID, state)
	if err != nil {
		if kivik.HTTPStatus(err) == http.StatusConflict {
			return ErrStale
		}
		return fmt.Errorf("failed to save query state: %w", err)
	}
	state.Rev = rev
	return nil
}

func (r *queryStateRepository) Clear(ctx context.Context, userID, pageKey string) error {
	existing, err := r.Load(ctx, userID, pageKey)
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := r.db.Delete(ctx, existing.ID, existing.Rev); err != nil {
		return fmt.Errorf("failed to clear query state: %w", err)
	}
	return nil
}
