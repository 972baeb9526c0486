package services

import (
	"KidQuest/models"
	"KidQuest/repositories"
	"context"
	"fmt"
)

// requireLink returns ErrNotFound for an unknown child and ErrForbidden when
// the parent has no link to it.
func requireLink(ctx context.Context, store repositories.Store, parentID, childID string) error {
	if parentID == "" {
		return models.ErrUnauthorized
	}
	if childID == "" {
		return fmt.Errorf("%w: child_id is required", models.ErrInvalidInput)
	}
	if _, err := store.Children().FindByID(ctx, childID); err != nil {
		return err
	}
	ok, err := store.Links().Exists(ctx, parentID, childID)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrForbidden
	}
	return nil
}
