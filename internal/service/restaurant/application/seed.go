package application

import (
	"context"

	"github.com/pkg/errors"

	"fooddash/internal/pkg/lock"
	"fooddash/internal/pkg/logger"
	"fooddash/internal/service/restaurant/domain"
)

const seedLockKey = "catalog-seed"

type sampleMenu struct {
	name, description, image string
	price                    int64
	stock                    int
}

var sampleRestaurants = []struct {
	restaurant domain.Restaurant
	menus      []sampleMenu
}{
	{
		restaurant: domain.Restaurant{Name: "Golden Wings", Address: "12 Yeoksam-ro, Gangnam-gu", Phone: "02-1234-5678", Description: "fried chicken"},
		menus: []sampleMenu{
			{"Fried Chicken", "classic crispy fried chicken", "https://img.fooddash.local/fried_chicken.jpg", 18000, 100},
			{"Spicy Chicken", "sweet and spicy glazed chicken", "https://img.fooddash.local/spicy_chicken.jpg", 19000, 100},
		},
	},
	{
		restaurant: domain.Restaurant{Name: "Stone Oven Pizza", Address: "45 Seocho-daero, Seocho-gu", Phone: "02-5678-1234", Description: "wood-fired pizza"},
		menus: []sampleMenu{
			{"Pepperoni Pizza", "pepperoni and mozzarella", "https://img.fooddash.local/pepperoni_pizza.jpg", 20000, 50},
			{"Bulgogi Pizza", "marinated beef bulgogi topping", "https://img.fooddash.local/bulgogi_pizza.jpg", 22000, 50},
		},
	},
	{
		restaurant: domain.Restaurant{Name: "Green Bowl", Address: "78 Olympic-ro, Songpa-gu", Phone: "02-9876-5432", Description: "salads"},
		menus: []sampleMenu{
			{"Caesar Salad", "romaine, parmesan, house dressing", "https://img.fooddash.local/caesar_salad.jpg", 12000, 80},
			{"Greek Salad", "feta, olives, olive oil", "https://img.fooddash.local/greek_salad.jpg", 13000, 80},
		},
	},
}

// SeedSampleData 在菜品表为空时写入示例数据。
// 多副本同时启动时由 locker 保证只有一个实例写入。
func SeedSampleData(ctx context.Context, repo domain.CatalogRepository, locker lock.Locker) (bool, error) {
	unlock, err := locker.Lock(ctx, seedLockKey)
	if err != nil {
		return false, errors.Wrap(err, "acquire seed lock")
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("release seed lock failed")
		}
	}()

	n, err := repo.CountMenus(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	for _, sample := range sampleRestaurants {
		r := sample.restaurant
		if err := repo.CreateRestaurant(ctx, &r); err != nil {
			return false, errors.Wrapf(err, "seed restaurant %s", r.Name)
		}
		for _, sm := range sample.menus {
			m, err := domain.NewMenuItem(r.ID, sm.name, sm.description, sm.price, sm.image, sm.stock)
			if err != nil {
				return false, err
			}
			if err := repo.CreateMenu(ctx, m); err != nil {
				return false, errors.Wrapf(err, "seed menu %s", sm.name)
			}
		}
	}
	logger.Ctx(ctx).Info().Int("restaurants", len(sampleRestaurants)).Msg("sample catalog data inserted")
	return true, nil
}
