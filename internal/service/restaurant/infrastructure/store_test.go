package infrastructure

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"fooddash/internal/service/restaurant/domain"
)

func newSQLiteStore(t *testing.T) domain.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	// :memory: 每个连接是独立的库，限制为单连接
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewGormStore(db)
}

var stores = []struct {
	name string
	new  func(t *testing.T) domain.Store
}{
	{"memory", func(*testing.T) domain.Store { return NewMemoryStore() }},
	{"gorm", newSQLiteStore},
}

func seedMenu(t *testing.T, s domain.Store, stock int) *domain.MenuItem {
	t.Helper()
	ctx := context.Background()
	r := &domain.Restaurant{Name: "chicken house"}
	if err := s.CreateRestaurant(ctx, r); err != nil {
		t.Fatal(err)
	}
	m, err := domain.NewMenuItem(r.ID, "fried chicken", "crispy", 18000, "", stock)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.CreateMenu(ctx, m); err != nil {
		t.Fatal(err)
	}
	return m
}

func decrement(qty int) func(*domain.MenuItem) error {
	return func(m *domain.MenuItem) error { return m.Decrement(qty) }
}

func TestStoreCatalogReads(t *testing.T) {
	for _, st := range stores {
		t.Run(st.name, func(t *testing.T) {
			s := st.new(t)
			ctx := context.Background()
			m := seedMenu(t, s, 0)

			got, err := s.GetMenu(ctx, m.ID)
			if err != nil {
				t.Fatal(err)
			}
			if got.Name != "fried chicken" || got.Price != 18000 || got.Stock != 0 || got.Available {
				t.Errorf("menu = %+v", got)
			}
			if _, err := s.GetMenu(ctx, 999); !errors.Is(err, domain.ErrMenuNotFound) {
				t.Errorf("err = %v", err)
			}
			if _, err := s.GetRestaurant(ctx, 999); !errors.Is(err, domain.ErrRestaurantNotFound) {
				t.Errorf("err = %v", err)
			}

			list, _ := s.ListMenusByRestaurant(ctx, m.RestaurantID)
			if len(list) != 1 {
				t.Errorf("menus of restaurant = %d", len(list))
			}
			if n, _ := s.CountMenus(ctx); n != 1 {
				t.Errorf("count = %d", n)
			}

			if err := s.UpdateMenuPrice(ctx, m.ID, 21000); err != nil {
				t.Fatal(err)
			}
			got, _ = s.GetMenu(ctx, m.ID)
			if got.Price != 21000 {
				t.Errorf("price = %d", got.Price)
			}
			if err := s.UpdateMenuPrice(ctx, 999, 1); !errors.Is(err, domain.ErrMenuNotFound) {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestStoreAdjustStock(t *testing.T) {
	for _, st := range stores {
		t.Run(st.name, func(t *testing.T) {
			s := st.new(t)
			ctx := context.Background()
			m := seedMenu(t, s, 3)

			item, err := s.AdjustStock(ctx, m.ID, decrement(3))
			if err != nil {
				t.Fatal(err)
			}
			if item.Stock != 0 || item.Available {
				t.Errorf("after sell-out: %+v", item)
			}

			if _, err := s.AdjustStock(ctx, m.ID, decrement(1)); !errors.Is(err, domain.ErrInsufficientStock) {
				t.Fatalf("err = %v", err)
			}
			persisted, _ := s.GetMenu(ctx, m.ID)
			if persisted.Stock != 0 {
				t.Errorf("failed mutation changed stock to %d", persisted.Stock)
			}

			item, err = s.AdjustStock(ctx, m.ID, func(mi *domain.MenuItem) error { return mi.Increment(2) })
			if err != nil {
				t.Fatal(err)
			}
			persisted, _ = s.GetMenu(ctx, m.ID)
			if item.Stock != 2 || !persisted.Available || persisted.Stock != 2 {
				t.Errorf("after restore: returned %+v persisted %+v", item, persisted)
			}

			if _, err := s.AdjustStock(ctx, 404, decrement(1)); !errors.Is(err, domain.ErrMenuNotFound) {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestStoreConcurrentDecrements(t *testing.T) {
	const (
		initial = 10
		qty     = 3
		workers = 12
	)
	for _, st := range stores {
		t.Run(st.name, func(t *testing.T) {
			s := st.new(t)
			m := seedMenu(t, s, initial)

			var (
				wg           sync.WaitGroup
				mu           sync.Mutex
				successes    int
				insufficient int
			)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.AdjustStock(context.Background(), m.ID, decrement(qty))
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						successes++
					case errors.Is(err, domain.ErrInsufficientStock):
						insufficient++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			if successes != initial/qty {
				t.Errorf("successes = %d, want %d", successes, initial/qty)
			}
			if successes+insufficient != workers {
				t.Errorf("outcomes = %d + %d", successes, insufficient)
			}
			final, _ := s.GetMenu(context.Background(), m.ID)
			if final.Stock != initial-qty*successes || final.Stock < 0 {
				t.Errorf("final stock = %d", final.Stock)
			}
			if final.Available != (final.Stock > 0) {
				t.Errorf("available = %v with stock %d", final.Available, final.Stock)
			}
		})
	}
}

func TestStoreRestoreStockOnce(t *testing.T) {
	for _, st := range stores {
		t.Run(st.name, func(t *testing.T) {
			s := st.new(t)
			ctx := context.Background()
			m := seedMenu(t, s, 10)
			if _, err := s.AdjustStock(ctx, m.ID, decrement(3)); err != nil {
				t.Fatal(err)
			}

			item, applied, err := s.RestoreStock(ctx, 7, m.ID, 3)
			if err != nil || !applied || item.Stock != 10 {
				t.Fatalf("first restore: item=%+v applied=%v err=%v", item, applied, err)
			}
			item, applied, err = s.RestoreStock(ctx, 7, m.ID, 3)
			if err != nil || applied || item.Stock != 10 {
				t.Errorf("repeated restore: item=%+v applied=%v err=%v", item, applied, err)
			}
			// 其它订单不受影响
			item, applied, err = s.RestoreStock(ctx, 8, m.ID, 1)
			if err != nil || !applied || item.Stock != 11 {
				t.Errorf("other order: item=%+v applied=%v err=%v", item, applied, err)
			}
			if _, _, err := s.RestoreStock(ctx, 7, 404, 1); !errors.Is(err, domain.ErrMenuNotFound) {
				t.Errorf("err = %v", err)
			}
			if _, _, err := s.RestoreStock(ctx, 9, m.ID, 0); !errors.Is(err, domain.ErrInvalidQuantity) {
				t.Errorf("err = %v", err)
			}

			persisted, _ := s.GetMenu(ctx, m.ID)
			if persisted.Stock != 11 {
				t.Errorf("persisted stock = %d", persisted.Stock)
			}
		})
	}
}

func TestStoreConcurrentRestoresApplyOnce(t *testing.T) {
	for _, st := range stores {
		t.Run(st.name, func(t *testing.T) {
			s := st.new(t)
			m := seedMenu(t, s, 0)

			var (
				wg      sync.WaitGroup
				applied atomic.Int32
			)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, ok, err := s.RestoreStock(context.Background(), 42, m.ID, 2)
					if err != nil {
						t.Errorf("restore: %v", err)
					}
					if ok {
						applied.Add(1)
					}
				}()
			}
			wg.Wait()

			if applied.Load() != 1 {
				t.Errorf("applied %d times, want 1", applied.Load())
			}
			final, _ := s.GetMenu(context.Background(), m.ID)
			if final.Stock != 2 || !final.Available {
				t.Errorf("final = %+v", final)
			}
		})
	}
}
