package repositories

import (
	"KidQuest/models"
	"context"
)

type ParentRepository interface {
	FindByID(ctx context.Context, id string) (models.Parent, error)
	FindByFirebaseUID(ctx context.Context, firebaseUID string) (models.Parent, error)
	FindByEmail(ctx context.Context, email string) (models.Parent, error)
	FindByCode(ctx context.Context, code string) (models.Parent, error)
	CountByCode(ctx context.Context, code string) (int64, error)
	Create(ctx context.Context, parent *models.Parent) error
	Save(ctx context.Context, parent models.Parent) error
}

// LinkRepository stores parent/child authorization edges.
type LinkRepository interface {
	Exists(ctx context.Context, parentID, childID string) (bool, error)
	Create(ctx context.Context, link *models.ParentChildLink) error
	ParentIDs(ctx context.Context, childID string) ([]string, error)
}
