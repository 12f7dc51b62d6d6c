package infrastructure

import (
	"context"
	"strconv"
	"sync"
	"time"

	"fooddash/internal/pkg/lock"
	"fooddash/internal/service/restaurant/domain"
)

// MemoryStore 是进程内的 domain.Store 实现。
// 库存变更按菜品 ID 加锁（lock.Keyed），与数据库行锁的粒度一致。
type MemoryStore struct {
	mu          sync.RWMutex
	restaurants map[int64]domain.Restaurant
	menus       map[int64]domain.MenuItem
	nextRestID  int64
	nextMenuID  int64
	restored    map[restoreKey]struct{}

	itemLocks lock.Locker
}

type restoreKey struct {
	orderID, menuID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		restaurants: make(map[int64]domain.Restaurant),
		menus:       make(map[int64]domain.MenuItem),
		restored:    make(map[restoreKey]struct{}),
		itemLocks:   lock.NewKeyed(),
	}
}

func (s *MemoryStore) ListRestaurants(_ context.Context) ([]domain.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Restaurant, 0, len(s.restaurants))
	for id := int64(1); id <= s.nextRestID; id++ {
		if r, ok := s.restaurants[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetRestaurant(_ context.Context, id int64) (*domain.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.restaurants[id]
	if !ok {
		return nil, domain.ErrRestaurantNotFound
	}
	return &r, nil
}

func (s *MemoryStore) CreateRestaurant(_ context.Context, r *domain.Restaurant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRestID++
	r.ID = s.nextRestID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.restaurants[r.ID] = *r
	return nil
}

func (s *MemoryStore) ListMenus(_ context.Context) ([]domain.MenuItem, error) {
	return s.filterMenus(func(domain.MenuItem) bool { return true }), nil
}

func (s *MemoryStore) ListMenusByRestaurant(_ context.Context, restaurantID int64) ([]domain.MenuItem, error) {
	return s.filterMenus(func(m domain.MenuItem) bool { return m.RestaurantID == restaurantID }), nil
}

func (s *MemoryStore) filterMenus(keep func(domain.MenuItem) bool) []domain.MenuItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MenuItem, 0, len(s.menus))
	for id := int64(1); id <= s.nextMenuID; id++ {
		if m, ok := s.menus[id]; ok && keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func (s *MemoryStore) GetMenu(_ context.Context, id int64) (*domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.menus[id]
	if !ok {
		return nil, domain.ErrMenuNotFound
	}
	return &m, nil
}

func (s *MemoryStore) CreateMenu(_ context.Context, m *domain.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMenuID++
	m.ID = s.nextMenuID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.menus[m.ID] = *m
	return nil
}

func (s *MemoryStore) UpdateMenuPrice(ctx context.Context, id int64, price int64) error {
	_, err := s.AdjustStock(ctx, id, func(m *domain.MenuItem) error { return m.ChangePrice(price) })
	return err
}

func (s *MemoryStore) CountMenus(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.menus)), nil
}

func (s *MemoryStore) AdjustStock(ctx context.Context, menuID int64, mutate func(*domain.MenuItem) error) (*domain.MenuItem, error) {
	unlock, err := s.itemLocks.Lock(ctx, strconv.FormatInt(menuID, 10))
	if err != nil {
		return nil, err
	}
	defer unlock()

	s.mu.RLock()
	item, ok := s.menus[menuID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrMenuNotFound
	}

	if err := mutate(&item); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.menus[menuID] = item
	s.mu.Unlock()
	return &item, nil
}

// RestoreStock 在菜品锁内检查并登记归还记录。
func (s *MemoryStore) RestoreStock(ctx context.Context, orderID, menuID int64, qty int) (*domain.MenuItem, bool, error) {
	key := restoreKey{orderID: orderID, menuID: menuID}
	applied := false
	item, err := s.AdjustStock(ctx, menuID, func(m *domain.MenuItem) error {
		s.mu.RLock()
		_, done := s.restored[key]
		s.mu.RUnlock()
		if done {
			return nil
		}
		if err := m.Increment(qty); err != nil {
			return err
		}
		// mutate 返回 nil 后一定落库，这里登记仍在菜品锁内
		s.mu.Lock()
		s.restored[key] = struct{}{}
		s.mu.Unlock()
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return item, applied, nil
}
