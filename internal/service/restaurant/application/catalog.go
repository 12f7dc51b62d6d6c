package application

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"fooddash/internal/pkg/cache"
	"fooddash/internal/service/restaurant/domain"
)

var ErrInvalidMenu = errors.New("menu name must not be empty")

// CatalogService 提供菜单和餐厅的读写。单个菜品和全量菜单走读穿透缓存。
type CatalogService struct {
	repo   domain.CatalogRepository
	cache  *cache.ReadThrough
	tracer trace.Tracer
}

func NewCatalogService(repo domain.CatalogRepository, c *cache.ReadThrough, tracer trace.Tracer) *CatalogService {
	return &CatalogService{repo: repo, cache: c, tracer: tracer}
}

func (s *CatalogService) ListMenus(ctx context.Context) ([]MenuView, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.ListMenus")
	defer span.End()

	data, err := s.cache.Get(ctx, cache.AllMenusPolicy, cache.AllMenusKey, func(ctx context.Context) ([]byte, error) {
		menus, err := s.repo.ListMenus(ctx)
		if err != nil {
			return nil, err
		}
		views := make([]MenuView, 0, len(menus))
		for i := range menus {
			views = append(views, toMenuView(&menus[i]))
		}
		return json.Marshal(views)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	var views []MenuView
	if err := json.Unmarshal(data, &views); err != nil {
		return nil, errors.Wrap(err, "decode cached menus")
	}
	return views, nil
}

func (s *CatalogService) GetMenu(ctx context.Context, id int64) (*MenuView, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.GetMenu")
	defer span.End()
	span.SetAttributes(attribute.Int64("menu.id", id))

	data, err := s.cache.Get(ctx, cache.MenuPolicy, cache.MenuKey(id), func(ctx context.Context) ([]byte, error) {
		m, err := s.repo.GetMenu(ctx, id)
		if err != nil {
			return nil, err
		}
		return json.Marshal(toMenuView(m))
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	var view MenuView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, errors.Wrap(err, "decode cached menu")
	}
	return &view, nil
}

func (s *CatalogService) ListRestaurants(ctx context.Context) ([]RestaurantView, error) {
	restaurants, err := s.repo.ListRestaurants(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]RestaurantView, 0, len(restaurants))
	for i := range restaurants {
		views = append(views, toRestaurantView(&restaurants[i]))
	}
	return views, nil
}

func (s *CatalogService) GetRestaurant(ctx context.Context, id int64) (*RestaurantView, error) {
	r, err := s.repo.GetRestaurant(ctx, id)
	if err != nil {
		return nil, err
	}
	view := toRestaurantView(r)
	return &view, nil
}

// ListRestaurantMenus 不走缓存。
func (s *CatalogService) ListRestaurantMenus(ctx context.Context, restaurantID int64) ([]MenuView, error) {
	if _, err := s.repo.GetRestaurant(ctx, restaurantID); err != nil {
		return nil, err
	}
	menus, err := s.repo.ListMenusByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	views := make([]MenuView, 0, len(menus))
	for i := range menus {
		views = append(views, toMenuView(&menus[i]))
	}
	return views, nil
}

func (s *CatalogService) CreateRestaurant(ctx context.Context, req CreateRestaurantRequest) (*RestaurantView, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.New("restaurant name must not be empty")
	}
	r := &domain.Restaurant{Name: req.Name, Address: req.Address, Phone: req.Phone, Description: req.Description}
	if err := s.repo.CreateRestaurant(ctx, r); err != nil {
		return nil, err
	}
	view := toRestaurantView(r)
	return &view, nil
}

func (s *CatalogService) CreateMenu(ctx context.Context, req CreateMenuRequest) (*MenuView, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrInvalidMenu
	}
	if _, err := s.repo.GetRestaurant(ctx, req.RestaurantID); err != nil {
		return nil, err
	}
	stock := -1
	if req.Inventory != nil {
		if *req.Inventory < 0 {
			return nil, domain.ErrInvalidQuantity
		}
		stock = *req.Inventory
	}
	m, err := domain.NewMenuItem(req.RestaurantID, req.Name, req.Description, req.Price, req.ImageURL, stock)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateMenu(ctx, m); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.MenuKey(m.ID), cache.AllMenusKey)
	view := toMenuView(m)
	return &view, nil
}

// UpdateMenuPrice 修改价格，不影响已下单的价格快照。
func (s *CatalogService) UpdateMenuPrice(ctx context.Context, id int64, price int64) (*MenuView, error) {
	if price < 0 {
		return nil, domain.ErrInvalidPrice
	}
	if err := s.repo.UpdateMenuPrice(ctx, id, price); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.MenuKey(id), cache.AllMenusKey)
	m, err := s.repo.GetMenu(ctx, id)
	if err != nil {
		return nil, err
	}
	view := toMenuView(m)
	return &view, nil
}
