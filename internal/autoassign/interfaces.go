package autoassign

import (
	"context"

	"github.com/google/uuid"

	"github.com/curbsideops/dispatch-backend/pkg/db/models"
	"github.com/curbsideops/dispatch-backend/pkg/enums"
	"github.com/curbsideops/dispatch-backend/pkg/routing"
)

// Repository reads candidate properties and persists placement decisions.
type Repository interface {
	FindProperty(ctx context.Context, propertyID uuid.UUID) (*models.Property, error)
	SetPlacement(ctx context.Context, propertyID uuid.UUID, day *string, state enums.ApprovalState) error
}

// routeHistory is the slice of the provider client the evaluator consumes.
type routeHistory interface {
	RoutesForDay(ctx context.Context, date string) ([]routing.DriverRoute, error)
}
