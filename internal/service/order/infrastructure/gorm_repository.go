package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"fooddash/internal/service/order/domain"
)

// GormOrderRepository 是 domain.OrderRepository 的 GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Migrate 创建或更新表结构
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&OrderModel{}, &OrderItemModel{})
}

// Create 订单和订单行在同一个事务里写入，任意一行失败整体回滚。
func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	model := FromDomainOrder(order)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := model.Items
		model.Items = nil
		if err := tx.Create(model).Error; err != nil {
			return errors.Wrap(err, "insert order")
		}
		for i := range items {
			items[i].OrderID = model.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return errors.Wrap(err, "insert order items")
		}
		model.Items = items
		return nil
	})
	if err != nil {
		return err
	}

	order.ID = model.ID
	order.CreatedAt, order.UpdatedAt = model.CreatedAt, model.UpdatedAt
	for i := range order.Items {
		order.Items[i].ID = model.Items[i].ID
		order.Items[i].OrderID = model.ID
	}
	return nil
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	return ToDomainOrder(&model), nil
}

func (r *GormOrderRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	var models []OrderModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list orders of user %d", userID)
	}
	out := make([]domain.Order, 0, len(models))
	for i := range models {
		out = append(out, *ToDomainOrder(&models[i]))
	}
	return out, nil
}

// UpdateStatus 用 WHERE status = from 做条件更新，防止并发取消重复归还库存。
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, order *domain.Order, from domain.Status) error {
	res := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ? AND status = ?", order.ID, string(from)).
		Updates(map[string]interface{}{
			"status":         string(order.Status),
			"payment_status": string(order.PaymentStatus),
			"updated_at":     order.UpdatedAt,
		})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update order %d status", order.ID)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&OrderModel{}).Where("id = ?", order.ID).Count(&count).Error; err != nil {
		return errors.Wrapf(err, "check order %d", order.ID)
	}
	if count == 0 {
		return domain.ErrOrderNotFound
	}
	return domain.ErrStatusConflict
}
