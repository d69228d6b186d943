package query

import (
	"context"

	"coinpilot/internal/dao"
	"coinpilot/internal/model/entity"
	"gorm.io/gorm"
)

var _ dao.UserDao = (*userDao)(nil)

type userDao struct {
	ds *gorm.DB
}

func NewUserDao(ds *gorm.DB) *userDao {
	return &userDao{
		ds: ds,
	}
}

func (u *userDao) UserGetByName(ctx context.Context, username string) (entity.User, error) {
	var user entity.User
	err := u.ds.WithContext(ctx).Model(&entity.User{}).Where("username = ?", username).Find(&user).Error
	return user, err
}

func (u *userDao) UserGetById(ctx context.Context, userId int64) (entity.User, error) {
	var user entity.User
	err := u.ds.WithContext(ctx).Model(&entity.User{}).Where("id = ?", userId).Find(&user).Error
	return user, err
}

func (u *userDao) UserCreate(ctx context.Context, user *entity.User) error {
	var existingUser entity.User
	// username唯一出现问题，处理下：
	// 数据库级别的唯一约束不能完全防止竞态条件，也就是当两个请求几乎同时尝试插入相同的用户名时，可能会出现问题。
	if err := u.ds.WithContext(ctx).Where("username = ?", user.Username).First(&existingUser).Error; err != gorm.ErrRecordNotFound {
		return err
	}
	return u.ds.WithContext(ctx).Create(user).Error
}

func (u *userDao) UserVerifyUsername(ctx context.Context, username string) (count int64, err error) {
	err = u.ds.WithContext(ctx).Model(&entity.User{}).Where("username = ?", username).Count(&count).Error
	return
}

func (u *userDao) UserVerifyEmail(ctx context.Context, email string) (count int64, err error) {
	err = u.ds.WithContext(ctx).Model(&entity.User{}).Where("email = ?", email).Count(&count).Error
	return
}

func (u *userDao) UserDelete(ctx context.Context, userId int64) error {
	return u.ds.WithContext(ctx).Delete(&entity.User{Id: userId}).Error
}

func (u *userDao) UserUpdate(ctx context.Context, user *entity.User) error {
	return u.ds.WithContext(ctx).Updates(user).Error
}
