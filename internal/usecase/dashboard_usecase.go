package usecase

import (
	"context"
	"time"

	repo "fooddelivery/internal/repository"

	"go.uber.org/zap"
)

var dashboardPeriods = map[string]time.Duration{
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
}

type DashboardUsecase struct {
	stats  repo.StatsRepository
	orders repo.OrderRepository
	items  repo.OrderItemRepository
	log    *zap.Logger
	now    func() time.Time
}

func NewDashboardUsecase(stats repo.StatsRepository, orders repo.OrderRepository, items repo.OrderItemRepository, log *zap.Logger) *DashboardUsecase {
	return &DashboardUsecase{stats: stats, orders: orders, items: items, log: log, now: time.Now}
}

type DashboardOutput struct {
	Period         string               `json:"period"`
	Since          time.Time            `json:"since"`
	Totals         repo.DashboardTotals `json:"totals"`
	OrdersByStatus []repo.StatusCount   `json:"orders_by_status"`
	TopProducts    []repo.TopProduct    `json:"top_products"`
	DailyRevenue   []repo.DailyRevenue  `json:"daily_revenue"`
	RecentOrders   []OrderOutput        `json:"recent_orders"`
}

// 売上はCANCELLEDを除く
func (u *DashboardUsecase) Get(ctx context.Context, period string) (DashboardOutput, error) {
	if period == "" {
		period = "30d"
	}
	d, ok := dashboardPeriods[period]
	if !ok {
		return DashboardOutput{}, validationError("invalid period")
	}
	since := u.now().Add(-d)

	totals, err := u.stats.Totals(ctx, since)
	if err != nil {
		u.log.Error("dashboard totals failed", zap.Error(err))
		return DashboardOutput{}, dbError()
	}
	byStatus, err := u.stats.OrdersByStatus(ctx, since)
	if err != nil {
		return DashboardOutput{}, dbError()
	}
	top, err := u.stats.TopProducts(ctx, since, 5)
	if err != nil {
		return DashboardOutput{}, dbError()
	}
	daily, err := u.stats.DailyRevenue(ctx, since)
	if err != nil {
		return DashboardOutput{}, dbError()
	}

	recent, _, err := u.orders.ListAdmin(ctx, repo.AdminOrderListFilter{Page: 1, Limit: 10})
	if err != nil {
		return DashboardOutput{}, dbError()
	}
	recentOut, err := ordersWithItems(ctx, u.items, recent)
	if err != nil {
		return DashboardOutput{}, err
	}

	return DashboardOutput{
		Period:         period,
		Since:          since,
		Totals:         totals,
		OrdersByStatus: byStatus,
		TopProducts:    top,
		DailyRevenue:   daily,
		RecentOrders:   recentOut,
	}, nil
}
