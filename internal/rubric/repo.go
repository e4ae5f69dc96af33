package rubric

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid instance state")
)

// ListOpts filters definition listings.
type ListOpts struct {
	Q      string
	Status string
	Limit  int
	Offset int
}

// Store is the persistence contract for definitions, instances and fillings.
// Implementations must resolve pending (zero) criterion and level ids on
// save, and GetDefinition must return one consistent snapshot so the
// classifier never diffs against a half-written definition.
type Store interface {
	GetDefinition(ctx context.Context, id int64) (Definition, error)
	SaveDefinition(ctx context.Context, d Definition) (Definition, error)
	DeleteDefinition(ctx context.Context, id int64) error
	ListDefinitions(ctx context.Context, opts ListOpts) ([]DefinitionSummary, error)

	CreateInstance(ctx context.Context, inst Instance) (Instance, error)
	GetInstance(ctx context.Context, id string) (Instance, error)
	FindInstance(ctx context.Context, defID int64, raterID, itemID string) (Instance, error)
	UpdateInstanceStatus(ctx context.Context, id, status string) error
	DeleteInstance(ctx context.Context, id string) error

	PutFillings(ctx context.Context, instanceID string, fillings []Filling) error
	GetFillings(ctx context.Context, instanceID string) ([]Filling, error)

	CountActiveInstances(ctx context.Context, defID int64) (int, error)
	MarkInstancesNeedUpdate(ctx context.Context, defID int64) (int, error)
}
