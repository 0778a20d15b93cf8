package adapters

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"debt_backend/internal/feature/debt/usecase"
	userentity "debt_backend/internal/feature/user/domain/entity"
)

// userDirectoryGorm は債務の関係者をusersテーブルから引き当てます。
type userDirectoryGorm struct {
	db *gorm.DB
}

var _ usecase.UserDirectory = (*userDirectoryGorm)(nil)

func NewUserDirectory(db *gorm.DB) *userDirectoryGorm {
	return &userDirectoryGorm{db: db}
}

func (r *userDirectoryGorm) FindByID(ctx context.Context, id uint) (*userentity.User, error) {
	var u userentity.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *userDirectoryGorm) FindByIDs(ctx context.Context, ids []uint) (map[uint]userentity.User, error) {
	out := make(map[uint]userentity.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var us []userentity.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&us).Error; err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	for _, u := range us {
		out[u.ID] = u
	}
	return out, nil
}
