package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"sentinelhive/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByUserID(userID string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by user_id failed: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) Exists(userID string) (bool, error) {
	user, err := r.GetByUserID(userID)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}
