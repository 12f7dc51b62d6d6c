package infrastructure

import (
	"fooddash/internal/service/order/domain"
)

// ToDomainOrder 将 GORM 模型转换为领域实体
func ToDomainOrder(m *OrderModel) *domain.Order {
	items := make([]domain.OrderItem, 0, len(m.Items))
	for _, it := range m.Items {
		items = append(items, domain.OrderItem{
			ID:       it.ID,
			OrderID:  it.OrderID,
			MenuID:   it.MenuID,
			Quantity: it.Quantity,
			Price:    it.Price,
			Name:     it.Name,
		})
	}
	return &domain.Order{
		ID:            m.ID,
		UserID:        m.UserID,
		Address:       m.Address,
		Phone:         m.Phone,
		TotalPrice:    m.TotalPrice,
		Status:        domain.Status(m.Status),
		PaymentStatus: domain.PaymentStatus(m.PaymentStatus),
		Items:         items,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// FromDomainOrder 将领域实体转换为 GORM 模型
func FromDomainOrder(o *domain.Order) *OrderModel {
	items := make([]OrderItemModel, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemModel{
			ID:       it.ID,
			OrderID:  o.ID,
			MenuID:   it.MenuID,
			Quantity: it.Quantity,
			Price:    it.Price,
			Name:     it.Name,
		})
	}
	return &OrderModel{
		ID:            o.ID,
		UserID:        o.UserID,
		TotalPrice:    o.TotalPrice,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Address:       o.Address,
		Phone:         o.Phone,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Items:         items,
	}
}
