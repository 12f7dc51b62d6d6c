package infrastructure

import "time"

// OrderModel 对应数据库中的 orders 表
type OrderModel struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	UserID        int64  `gorm:"index;not null"`
	TotalPrice    int64  `gorm:"not null"`
	Status        string `gorm:"size:32;index;not null"`
	PaymentStatus string `gorm:"size:32;not null"`
	Address       string `gorm:"size:255"`
	Phone         string `gorm:"size:30"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Items []OrderItemModel `gorm:"foreignKey:OrderID"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 对应数据库中的 order_items 表
type OrderItemModel struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	OrderID  int64  `gorm:"index;not null"`
	MenuID   int64  `gorm:"not null"`
	Quantity int    `gorm:"not null"`
	Price    int64  `gorm:"not null"`
	Name     string `gorm:"size:100"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderItemModel) TableName() string {
	return "order_items"
}
