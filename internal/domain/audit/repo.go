package audit

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, e *Event) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Event, int, error)
}
