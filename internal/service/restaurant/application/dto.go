package application

import (
	"time"

	"fooddash/internal/service/restaurant/domain"
)

// MenuView 是菜品对外的 JSON 表示，字段名与线上接口保持一致。
type MenuView struct {
	ID           int64     `json:"id"`
	RestaurantID int64     `json:"restaurant_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        int64     `json:"price"`
	ImageURL     string    `json:"image_url"`
	IsAvailable  bool      `json:"is_available"`
	Inventory    int       `json:"inventory"`
	CreatedAt    time.Time `json:"created_at"`
}

type RestaurantView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Phone       string    `json:"phone"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateRestaurantRequest struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
}

// CreateMenuRequest 中 Inventory 为 nil 时使用默认库存。
type CreateMenuRequest struct {
	RestaurantID int64  `json:"restaurant_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Price        int64  `json:"price"`
	ImageURL     string `json:"image_url"`
	Inventory    *int   `json:"inventory,omitempty"`
}

func toMenuView(m *domain.MenuItem) MenuView {
	return MenuView{
		ID:           m.ID,
		RestaurantID: m.RestaurantID,
		Name:         m.Name,
		Description:  m.Description,
		Price:        m.Price,
		ImageURL:     m.ImageURL,
		IsAvailable:  m.Available,
		Inventory:    m.Stock,
		CreatedAt:    m.CreatedAt,
	}
}

func toRestaurantView(r *domain.Restaurant) RestaurantView {
	return RestaurantView{
		ID:          r.ID,
		Name:        r.Name,
		Address:     r.Address,
		Phone:       r.Phone,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
}
