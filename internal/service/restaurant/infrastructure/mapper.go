package infrastructure

import "fooddash/internal/service/restaurant/domain"

func ToDomainRestaurant(m *RestaurantModel) *domain.Restaurant {
	return &domain.Restaurant{
		ID:          m.ID,
		Name:        m.Name,
		Address:     m.Address,
		Phone:       m.Phone,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}

func FromDomainRestaurant(r *domain.Restaurant) *RestaurantModel {
	return &RestaurantModel{
		ID:          r.ID,
		Name:        r.Name,
		Address:     r.Address,
		Phone:       r.Phone,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
}

func ToDomainMenu(m *MenuModel) *domain.MenuItem {
	return &domain.MenuItem{
		ID:           m.ID,
		RestaurantID: m.RestaurantID,
		Name:         m.Name,
		Description:  m.Description,
		Price:        m.Price,
		ImageURL:     m.ImageURL,
		Stock:        m.Inventory,
		Available:    m.IsAvailable,
		CreatedAt:    m.CreatedAt,
	}
}

func FromDomainMenu(item *domain.MenuItem) *MenuModel {
	return &MenuModel{
		ID:           item.ID,
		RestaurantID: item.RestaurantID,
		Name:         item.Name,
		Description:  item.Description,
		Price:        item.Price,
		ImageURL:     item.ImageURL,
		IsAvailable:  item.Available,
		Inventory:    item.Stock,
		CreatedAt:    item.CreatedAt,
	}
}
