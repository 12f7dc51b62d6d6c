// internal/service/restaurant/domain/menu.go
package domain

import "time"

// DefaultInventory 是新建菜品未指定库存时的初始库存。
const DefaultInventory = 100

type Restaurant struct {
	ID          int64
	Name        string
	Address     string
	Phone       string
	Description string
	CreatedAt   time.Time
}

// MenuItem 是库存账本的核心实体。Available 永远由 Stock 推导，
// 只能通过 Decrement / Increment 修改库存。
type MenuItem struct {
	ID           int64
	RestaurantID int64
	Name         string
	Description  string
	Price        int64
	ImageURL     string
	Stock        int
	Available    bool
	CreatedAt    time.Time
}

// NewMenuItem 创建菜品，stock < 0 时使用默认库存。
func NewMenuItem(restaurantID int64, name, description string, price int64, imageURL string, stock int) (*MenuItem, error) {
	if price < 0 {
		return nil, ErrInvalidPrice
	}
	if stock < 0 {
		stock = DefaultInventory
	}
	m := &MenuItem{
		RestaurantID: restaurantID,
		Name:         name,
		Description:  description,
		Price:        price,
		ImageURL:     imageURL,
		Stock:        stock,
		CreatedAt:    time.Now().UTC(),
	}
	m.refreshAvailability()
	return m, nil
}

// Decrement 扣减库存，库存不足时不做任何修改。
func (m *MenuItem) Decrement(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if m.Stock < qty {
		return ErrInsufficientStock
	}
	m.Stock -= qty
	m.refreshAvailability()
	return nil
}

// Increment 归还库存。
func (m *MenuItem) Increment(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	m.Stock += qty
	m.refreshAvailability()
	return nil
}

// ChangePrice 只影响之后的下单，已下单的价格是快照。
func (m *MenuItem) ChangePrice(price int64) error {
	if price < 0 {
		return ErrInvalidPrice
	}
	m.Price = price
	return nil
}

func (m *MenuItem) refreshAvailability() {
	m.Available = m.Stock > 0
}
