package store

import (
	"context"

	"github.com/seantiz/stoker/internal/model"
)

// Store defines the persistence operations for run history.
type Store interface {
	CreateRun(ctx context.Context, r *model.Run) error
	FinishRun(ctx context.Context, r *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*model.Run, int, error)
	Close() error
}
