package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fooddash/internal/service/restaurant/domain"
)

// GormStore 是 domain.Store 的 GORM 实现。
// 库存变更使用 SELECT ... FOR UPDATE 行锁，锁随事务结束释放。
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate 创建或更新表结构。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&RestaurantModel{}, &MenuModel{}, &StockRestoreModel{})
}

func (s *GormStore) ListRestaurants(ctx context.Context) ([]domain.Restaurant, error) {
	var models []RestaurantModel
	if err := s.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list restaurants")
	}
	out := make([]domain.Restaurant, 0, len(models))
	for i := range models {
		out = append(out, *ToDomainRestaurant(&models[i]))
	}
	return out, nil
}

func (s *GormStore) GetRestaurant(ctx context.Context, id int64) (*domain.Restaurant, error) {
	var model RestaurantModel
	err := s.db.WithContext(ctx).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRestaurantNotFound
		}
		return nil, errors.Wrapf(err, "get restaurant %d", id)
	}
	return ToDomainRestaurant(&model), nil
}

func (s *GormStore) CreateRestaurant(ctx context.Context, r *domain.Restaurant) error {
	model := FromDomainRestaurant(r)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return errors.Wrap(err, "create restaurant")
	}
	r.ID, r.CreatedAt = model.ID, model.CreatedAt
	return nil
}

func (s *GormStore) ListMenus(ctx context.Context) ([]domain.MenuItem, error) {
	return s.findMenus(s.db.WithContext(ctx))
}

func (s *GormStore) ListMenusByRestaurant(ctx context.Context, restaurantID int64) ([]domain.MenuItem, error) {
	return s.findMenus(s.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID))
}

func (s *GormStore) findMenus(q *gorm.DB) ([]domain.MenuItem, error) {
	var models []MenuModel
	if err := q.Order("id").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list menus")
	}
	out := make([]domain.MenuItem, 0, len(models))
	for i := range models {
		out = append(out, *ToDomainMenu(&models[i]))
	}
	return out, nil
}

func (s *GormStore) GetMenu(ctx context.Context, id int64) (*domain.MenuItem, error) {
	var model MenuModel
	err := s.db.WithContext(ctx).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMenuNotFound
		}
		return nil, errors.Wrapf(err, "get menu %d", id)
	}
	return ToDomainMenu(&model), nil
}

func (s *GormStore) CreateMenu(ctx context.Context, m *domain.MenuItem) error {
	model := FromDomainMenu(m)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return errors.Wrap(err, "create menu")
	}
	m.ID, m.CreatedAt = model.ID, model.CreatedAt
	return nil
}

func (s *GormStore) UpdateMenuPrice(ctx context.Context, id int64, price int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model MenuModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrMenuNotFound
			}
			return errors.Wrapf(err, "lock menu %d", id)
		}
		return tx.Model(&MenuModel{}).Where("id = ?", id).Update("price", price).Error
	})
}

func (s *GormStore) CountMenus(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&MenuModel{}).Count(&n).Error; err != nil {
		return 0, errors.Wrap(err, "count menus")
	}
	return n, nil
}

// AdjustStock 在一个事务内锁定单行、执行 mutate 并写回库存和可售状态。
func (s *GormStore) AdjustStock(ctx context.Context, menuID int64, mutate func(*domain.MenuItem) error) (*domain.MenuItem, error) {
	var out *domain.MenuItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := lockMenu(tx, menuID)
		if err != nil {
			return err
		}
		if err := mutate(item); err != nil {
			return err
		}
		if err := saveStock(tx, item); err != nil {
			return err
		}
		out = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RestoreStock 在持有菜品行锁时检查归还记录，归还和记录在同一个事务里提交。
func (s *GormStore) RestoreStock(ctx context.Context, orderID, menuID int64, qty int) (*domain.MenuItem, bool, error) {
	var (
		out     *domain.MenuItem
		applied bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := lockMenu(tx, menuID)
		if err != nil {
			return err
		}

		var n int64
		if err := tx.Model(&StockRestoreModel{}).
			Where("order_id = ? AND menu_id = ?", orderID, menuID).
			Count(&n).Error; err != nil {
			return errors.Wrapf(err, "check restore of order %d menu %d", orderID, menuID)
		}
		if n > 0 {
			out = item
			return nil
		}

		if err := item.Increment(qty); err != nil {
			return err
		}
		if err := saveStock(tx, item); err != nil {
			return err
		}
		receipt := &StockRestoreModel{OrderID: orderID, MenuID: menuID, Quantity: qty}
		if err := tx.Create(receipt).Error; err != nil {
			return errors.Wrapf(err, "record restore of order %d menu %d", orderID, menuID)
		}
		out, applied = item, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, applied, nil
}

func lockMenu(tx *gorm.DB, menuID int64) (*domain.MenuItem, error) {
	var model MenuModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, menuID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMenuNotFound
		}
		return nil, errors.Wrapf(err, "lock menu %d", menuID)
	}
	return ToDomainMenu(&model), nil
}

func saveStock(tx *gorm.DB, item *domain.MenuItem) error {
	err := tx.Model(&MenuModel{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
		"inventory":    item.Stock,
		"is_available": item.Available,
	}).Error
	return errors.Wrapf(err, "update stock of menu %d", item.ID)
}
