// Package storage defines the persistence interface for extraction results and
// reviewer annotations.
package storage

import (
	"context"

	"github.com/hyperjump/reqmerge/internal/models"
)

// Storage persists the merged requirement collection. Extraction output is replaced
// wholesale by each run; service annotations are kept across runs.
type Storage interface {
	// ReplaceResult atomically swaps the stored labels and requirements for the
	// output of run.
	ReplaceResult(ctx context.Context, run models.Run, labels []models.SourceLabel, coll *models.Collection) error
	// LoadCollection returns the stored labels and requirements with services applied.
	LoadCollection(ctx context.Context) ([]models.SourceLabel, *models.Collection, error)
	GetRequirement(ctx context.Context, id string) (*models.Requirement, error)
	// SetService records a reviewer's service value. It returns
	// models.ErrRequirementNotFound when id is not in the current collection.
	SetService(ctx context.Context, id, value string) error

	// Stats
	LastRun(ctx context.Context) (*models.Run, error)
	CountRequirements(ctx context.Context) (int64, error)
	CountLabels(ctx context.Context) (int64, error)

	Close() error
}
