package repository

import (
	"context"

	"github.com/yukikurage/workforce-api/internal/database"
	"github.com/yukikurage/workforce-api/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.Work == nil {
		user.Work = datatypes.JSONSlice[uint64]{}
	}
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) FindByIDs(ctx context.Context, ids []uint64) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// FindActiveByLogin finds an active user by login name
func (r *GormUserRepository) FindActiveByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Scopes(database.ActiveOnly).
		Where("login = ?", login).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) FindActiveByFaceSubject(ctx context.Context, subjectID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Scopes(database.ActiveOnly).
		Where("face_subject_id = ?", subjectID).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Update saves the user's own columns. The work list and active flag are only
// written through UpdateWork and Deactivate.
func (r *GormUserRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit("Work", "Active").Save(user).Error
}

func (r *GormUserRepository) UpdateWork(ctx context.Context, id uint64, work []uint64) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("work", datatypes.JSONSlice[uint64](nonNil(work))).Error
}

func (r *GormUserRepository) Deactivate(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"active":          false,
			"work":            datatypes.JSONSlice[uint64]{},
			"face_subject_id": "",
			"face_photo_key":  "",
		}).Error
}

// List retrieves active users with filtering and pagination
func (r *GormUserRepository) List(ctx context.Context, opts ListOptions) ([]models.User, int64, error) {
	opts.Scopes = append([]Scope{database.ActiveOnly}, opts.Scopes...)
	return list[models.User](r.db.WithContext(ctx), opts, "last_name ASC, first_name ASC, id ASC")
}

func (r *GormUserRepository) ListActive(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Scopes(database.ActiveOnly).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func nonNil(ids []uint64) []uint64 {
	if ids == nil {
		return []uint64{}
	}
	return ids
}
