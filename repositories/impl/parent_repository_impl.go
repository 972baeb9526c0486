package impl

import (
	"KidQuest/models"
	"KidQuest/repositories"
	"context"

	"gorm.io/gorm"
)

type ParentRepositoryImpl struct {
	DB *gorm.DB
}

func NewParentRepository(db *gorm.DB) repositories.ParentRepository {
	return &ParentRepositoryImpl{DB: db}
}

func (r *ParentRepositoryImpl) find(ctx context.Context, query string, arg string) (models.Parent, error) {
	var parent models.Parent
	if err := r.DB.WithContext(ctx).Where(query, arg).First(&parent).Error; err != nil {
		return models.Parent{}, translateError(err)
	}
	return parent, nil
}

func (r *ParentRepositoryImpl) FindByID(ctx context.Context, id string) (models.Parent, error) {
	return r.find(ctx, "id = ?", id)
}

func (r *ParentRepositoryImpl) FindByFirebaseUID(ctx context.Context, firebaseUID string) (models.Parent, error) {
	return r.find(ctx, "firebase_uid = ?", firebaseUID)
}

func (r *ParentRepositoryImpl) FindByEmail(ctx context.Context, email string) (models.Parent, error) {
	return r.find(ctx, "email = ?", email)
}

func (r *ParentRepositoryImpl) FindByCode(ctx context.Context, code string) (models.Parent, error) {
	return r.find(ctx, "code = ?", code)
}

func (r *ParentRepositoryImpl) CountByCode(ctx context.Context, code string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Parent{}).Where("code = ?", code).Count(&count).Error
	return count, translateError(err)
}

func (r *ParentRepositoryImpl) Create(ctx context.Context, parent *models.Parent) error {
	if parent.ID == "" {
		parent.ID = models.NewID()
	}
	return translateError(r.DB.WithContext(ctx).Create(parent).Error)
}

func (r *ParentRepositoryImpl) Save(ctx context.Context, parent models.Parent) error {
	return translateError(r.DB.WithContext(ctx).Save(&parent).Error)
}

type LinkRepositoryImpl struct {
	DB *gorm.DB
}

func (r *LinkRepositoryImpl) Exists(ctx context.Context, parentID, childID string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.ParentChildLink{}).
		Where("parent_id = ? AND child_id = ?", parentID, childID).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

func (r *LinkRepositoryImpl) Create(ctx context.Context, link *models.ParentChildLink) error {
	if link.ID == "" {
		link.ID = models.NewID()
	}
	return translateError(r.DB.WithContext(ctx).Create(link).Error)
}

func (r *LinkRepositoryImpl) ParentIDs(ctx context.Context, childID string) ([]string, error) {
	var ids []string
	err := r.DB.WithContext(ctx).Model(&models.ParentChildLink{}).
		Where("child_id = ?", childID).
		Order("created_at").
		Pluck("parent_id", &ids).Error
	return ids, translateError(err)
}
