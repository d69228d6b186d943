package query

import (
	"context"
	"time"

	"coinpilot/internal/dao"
	"coinpilot/internal/model/entity"
	"coinpilot/utils"
	"gorm.io/gorm"
)

var _ dao.ExchangeDao = (*exchangeDao)(nil)

type exchangeDao struct {
	ds *gorm.DB
}

func NewExchangeDao(ds *gorm.DB) *exchangeDao {
	return &exchangeDao{
		ds: ds,
	}
}

func (d *exchangeDao) UserExchangeCreate(ctx context.Context, ue *entity.UserExchange) error {
	return d.ds.WithContext(ctx).Create(ue).Error
}

func (d *exchangeDao) UserExchangeList(ctx context.Context, userId int64) ([]entity.UserExchange, error) {
	var list []entity.UserExchange
	err := d.ds.WithContext(ctx).Where("user_id = ?", userId).Order("id").Find(&list).Error
	return list, err
}

func (d *exchangeDao) UserExchangeGet(ctx context.Context, userId, id int64) (entity.UserExchange, error) {
	var ue entity.UserExchange
	err := d.ds.WithContext(ctx).Where("user_id = ? AND id = ?", userId, id).First(&ue).Error
	return ue, err
}

func (d *exchangeDao) UserExchangeUpdate(ctx context.Context, userId, id int64, columns map[string]interface{}) error {
	if len(columns) == 0 {
		return nil
	}
	columns["updated_at"] = utils.JsonTime(time.Now())
	res := d.ds.WithContext(ctx).Model(&entity.UserExchange{}).
		Where("user_id = ? AND id = ?", userId, id).
		Updates(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (d *exchangeDao) UserExchangeDelete(ctx context.Context, userId, id int64) error {
	res := d.ds.WithContext(ctx).Where("user_id = ? AND id = ?", userId, id).Delete(&entity.UserExchange{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (d *exchangeDao) ActiveCredentialUserIds(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := d.ds.WithContext(ctx).Model(&entity.UserExchange{}).
		Where("is_active = ?", true).
		Distinct("user_id").Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (d *exchangeDao) CatalogList(ctx context.Context) ([]entity.ExchangeCatalog, error) {
	var list []entity.ExchangeCatalog
	err := d.ds.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&list).Error
	return list, err
}

func (d *exchangeDao) CatalogGet(ctx context.Context, id int64) (entity.ExchangeCatalog, error) {
	var ec entity.ExchangeCatalog
	err := d.ds.WithContext(ctx).Where("id = ?", id).First(&ec).Error
	return ec, err
}
