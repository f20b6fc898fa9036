package repository

import (
	"context"
	"time"

	"fooddelivery/internal/domain/model"
	repo "fooddelivery/internal/repository"

	"gorm.io/gorm"
)

type StatsGormRepository struct {
	db *gorm.DB
}

func NewStatsGormRepository(db *gorm.DB) *StatsGormRepository {
	return &StatsGormRepository{db: db}
}

// users/productsは全期間、orders/revenueはsince以降
func (r *StatsGormRepository) Totals(ctx context.Context, since time.Time) (repo.DashboardTotals, error) {
	var out repo.DashboardTotals
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.User{}).Where("role = ?", model.RoleCustomer).Count(&out.Users).Error; err != nil {
		return repo.DashboardTotals{}, err
	}
	if err := db.Model(&model.Product{}).Count(&out.Products).Error; err != nil {
		return repo.DashboardTotals{}, err
	}
	if err := db.Model(&model.Order{}).Where("created_at >= ?", since).Count(&out.Orders).Error; err != nil {
		return repo.DashboardTotals{}, err
	}
	err := db.Model(&model.Order{}).
		Select("COALESCE(SUM(total), 0)").
		Where("created_at >= ? AND status <> ?", since, model.OrderStatusCancelled).
		Scan(&out.Revenue).Error
	if err != nil {
		return repo.DashboardTotals{}, err
	}
	return out, nil
}

func (r *StatsGormRepository) OrdersByStatus(ctx context.Context, since time.Time) ([]repo.StatusCount, error) {
	var rows []repo.StatusCount
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("status, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("status").
		Order("status asc").
		Scan(&rows).Error
	if err != nil {
		return []repo.StatusCount{}, err
	}
	return rows, nil
}

// 商品単品の販売数。コンボは含めない
func (r *StatsGormRepository) TopProducts(ctx context.Context, since time.Time, limit int) ([]repo.TopProduct, error) {
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	var rows []repo.TopProduct
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select("order_items.product_id, MAX(order_items.name_snapshot) AS name, "+
			"SUM(order_items.quantity) AS quantity, "+
			"SUM(order_items.quantity * order_items.unit_price_snapshot) AS revenue").
		Joins("join orders on orders.id = order_items.order_id").
		Where("orders.created_at >= ? AND orders.status <> ?", since, model.OrderStatusCancelled).
		Where("order_items.kind = ? AND order_items.product_id IS NOT NULL", model.ItemKindProduct).
		Group("order_items.product_id").
		Order("quantity desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return []repo.TopProduct{}, err
	}
	return rows, nil
}

func (r *StatsGormRepository) DailyRevenue(ctx context.Context, since time.Time) ([]repo.DailyRevenue, error) {
	var rows []repo.DailyRevenue
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("date_trunc('day', created_at) AS day, COUNT(*) AS orders, COALESCE(SUM(total), 0) AS revenue").
		Where("created_at >= ? AND status <> ?", since, model.OrderStatusCancelled).
		Group("day").
		Order("day asc").
		Scan(&rows).Error
	if err != nil {
		return []repo.DailyRevenue{}, err
	}
	return rows, nil
}
