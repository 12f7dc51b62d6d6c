package infrastructure

import "time"

// RestaurantModel 对应数据库中的 restaurants 表
type RestaurantModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:100;not null"`
	Address     string `gorm:"size:255"`
	Phone       string `gorm:"size:30"`
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
}

// TableName 指定 GORM 应该使用的表名
func (RestaurantModel) TableName() string {
	return "restaurants"
}

// MenuModel 对应数据库中的 menus 表。
// 这里不给 inventory/is_available 加 default 标签：GORM 会跳过零值字段，
// 库存为 0 的菜品会被数据库默认值覆盖。
type MenuModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	RestaurantID int64  `gorm:"index;not null"`
	Name         string `gorm:"size:100;not null"`
	Description  string `gorm:"type:text"`
	Price        int64  `gorm:"not null"`
	ImageURL     string `gorm:"size:255"`
	IsAvailable  bool   `gorm:"not null"`
	Inventory    int    `gorm:"not null"`
	CreatedAt    time.Time
}

// TableName 指定 GORM 应该使用的表名
func (MenuModel) TableName() string {
	return "menus"
}

// StockRestoreModel 记录已经执行过的订单库存归还，主键保证每个 (订单, 菜品) 只有一条。
type StockRestoreModel struct {
	OrderID   int64 `gorm:"primaryKey;autoIncrement:false"`
	MenuID    int64 `gorm:"primaryKey;autoIncrement:false"`
	Quantity  int   `gorm:"not null"`
	CreatedAt time.Time
}

func (StockRestoreModel) TableName() string {
	return "stock_restores"
}
