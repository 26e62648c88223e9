package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/orders-service/internal/domain"
)

var ErrOrderNotFound = errors.New("order not found")

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, limit, offset int) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
	Stats(ctx context.Context) (domain.Stats, error)
	StatusAnalytics(ctx context.Context) ([]domain.StatusAnalytics, error)
	DailyAnalytics(ctx context.Context, days int) ([]domain.DailyAnalytics, error)
	Close() error
}
