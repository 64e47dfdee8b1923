package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/gin-blog/internal/apperr"
	"github.com/d60-Lab/gin-blog/internal/model"
)

type userRepository struct{ db *gorm.DB }

// NewUserRepository 基于 gorm 的用户仓储，usernames 表是用户名唯一性的权威来源。
func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) Get(ctx context.Context, uid string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("user %s", uid)
	}
	if err != nil {
		return nil, apperr.Upstream("users.get", err)
	}
	return &u, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	n := model.NormalizeUsername(username)
	var u model.User
	err := r.db.WithContext(ctx).Where("username_lower = ?", n).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("user %q", n)
	}
	if err != nil {
		return nil, apperr.Upstream("users.get_by_username", err)
	}
	return &u, nil
}

func (r *userRepository) GetMany(ctx context.Context, uids []string) ([]*model.User, error) {
	if len(uids) == 0 {
		return []*model.User{}, nil
	}
	var users []*model.User
	if err := r.db.WithContext(ctx).Where("uid IN ?", uids).Find(&users).Error; err != nil {
		return nil, apperr.Upstream("users.get_many", err)
	}
	return users, nil
}

func (r *userRepository) UsernameTaken(ctx context.Context, normalized string) (bool, error) {
	var users, reserved int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.User{}).Where("username_lower = ?", normalized).Count(&users).Error; err != nil {
		return false, apperr.Upstream("users.username_taken", err)
	}
	if err := db.Model(&model.UsernameReservation{}).Where("name = ?", normalized).Count(&reserved).Error; err != nil {
		return false, apperr.Upstream("users.username_taken", err)
	}
	return users > 0 || reserved > 0, nil
}

func (r *userRepository) Register(ctx context.Context, user *model.User) error {
	user.UsernameLower = model.NormalizeUsername(user.Username)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := reserve(tx, user.UsernameLower, user.UID); err != nil {
			return err
		}
		return tx.Create(user).Error
	})
	return apperr.Upstream("users.register", err)
}

func (r *userRepository) Rename(ctx context.Context, uid, username string) error {
	n := model.NormalizeUsername(username)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u model.User
		if err := tx.Where("uid = ?", uid).First(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("user %s", uid)
			}
			return err
		}
		if n != u.UsernameLower {
			if err := reserve(tx, n, uid); err != nil {
				return err
			}
			if err := tx.Where("name = ? AND uid = ?", u.UsernameLower, uid).
				Delete(&model.UsernameReservation{}).Error; err != nil {
				return err
			}
		}
		return tx.Model(&model.User{}).Where("uid = ?", uid).
			Updates(map[string]any{"username": username, "username_lower": n}).Error
	})
	return apperr.Upstream("users.rename", err)
}

func (r *userRepository) UpdateProfile(ctx context.Context, uid string, upd model.ProfileUpdate) error {
	updates := map[string]any{}
	if upd.DisplayName != nil {
		updates["display_name"] = *upd.DisplayName
	}
	if upd.PhotoURL != nil {
		updates["photo_url"] = *upd.PhotoURL
	}
	if len(updates) == 0 {
		_, err := r.Get(ctx, uid)
		return err
	}
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("uid = ?", uid).Updates(updates)
	if res.Error != nil {
		return apperr.Upstream("users.update_profile", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("user %s", uid)
	}
	return nil
}

// reserve 插入预留记录，主键冲突即被占用
func reserve(tx *gorm.DB, normalized, uid string) error {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.UsernameReservation{
		Name:       normalized,
		UID:        uid,
		ReservedAt: time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Conflictf("username %q is already taken", normalized)
	}
	return nil
}
