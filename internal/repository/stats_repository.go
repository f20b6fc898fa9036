package repository

import (
	"context"
	"time"
)

type DashboardTotals struct {
	Users    int64 `json:"users"`
	Products int64 `json:"products"`
	Orders   int64 `json:"orders"`
	Revenue  int64 `json:"revenue"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type TopProduct struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	Revenue   int64  `json:"revenue"`
}

type DailyRevenue struct {
	Day     time.Time `json:"day"`
	Orders  int64     `json:"orders"`
	Revenue int64     `json:"revenue"`
}

// 管理画面ダッシュボードの集計。売上はCANCELLEDを除く。
type StatsRepository interface {
	Totals(ctx context.Context, since time.Time) (DashboardTotals, error)
	OrdersByStatus(ctx context.Context, since time.Time) ([]StatusCount, error)
	TopProducts(ctx context.Context, since time.Time, limit int) ([]TopProduct, error)
	DailyRevenue(ctx context.Context, since time.Time) ([]DailyRevenue, error)
}
