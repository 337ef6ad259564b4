package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"freshtrack/internal/core/cache"
)

var ErrInvalidInput = errors.New("inventory: invalid input")

const (
	dashboardCacheKey = "dashboard:stats"
	// 未登记条码的负缓存：扫描枪对同一未知条码连续扫描时不反复查库
	unknownBarcodeTTL = 30 * time.Second
)

func barcodeCacheKey(code string) string { return "barcode:" + code }

type CreateProductInput struct {
	Barcode  string          `json:"barcode"  binding:"required,max=64"`
	Name     string          `json:"name"     binding:"required,max=128"`
	Category string          `json:"category" binding:"omitempty,max=64"`
	Unit     string          `json:"unit"     binding:"omitempty,max=16"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"    binding:"gte=0"`
	MinStock int             `json:"minStock" binding:"gte=0"`
}

type MovementInput struct {
	ProductID string       `json:"productId" binding:"required"`
	Type      MovementType `json:"type"      binding:"required"`
	Quantity  int          `json:"quantity"`
	Note      string       `json:"note"      binding:"omitempty,max=255"`
}

type Service struct {
	repo  *Repo
	cache *cache.Cache // 可为 nil
	ttl   time.Duration
	now   func() time.Time
	log   *zap.Logger
}

func NewService(repo *Repo, c *cache.Cache, dashboardTTL time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, cache: c, ttl: dashboardTTL, now: time.Now, log: log}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func (s *Service) CreateProduct(ctx context.Context, in CreateProductInput) (Product, error) {
	p := Product{
		ID:       uuid.NewString(),
		Barcode:  strings.TrimSpace(in.Barcode),
		Name:     strings.TrimSpace(in.Name),
		Category: strings.TrimSpace(in.Category),
		Unit:     strings.TrimSpace(in.Unit),
		Price:    in.Price.Round(2),
		Stock:    in.Stock,
		MinStock: in.MinStock,
		Active:   true,
	}
	switch {
	case p.Barcode == "":
		return Product{}, invalid("barcode required")
	case p.Name == "":
		return Product{}, invalid("name required")
	case p.Price.IsNegative():
		return Product{}, invalid("price must not be negative")
	case p.Stock < 0 || p.MinStock < 0:
		return Product{}, invalid("stock must not be negative")
	}
	if p.Unit == "" {
		p.Unit = "Stück"
	}
	if err := s.repo.CreateProduct(ctx, &p); err != nil {
		return Product{}, err
	}
	s.invalidateDashboard(ctx)
	if err := s.cache.Invalidate(ctx, barcodeCacheKey(p.Barcode)); err != nil {
		s.log.Warn("barcode cache invalidate failed", zap.String("barcode", p.Barcode), zap.Error(err))
	}
	return p, nil
}

func (s *Service) ListProducts(ctx context.Context, f ProductFilter) ([]Product, int64, error) {
	return s.repo.ListProducts(ctx, f)
}

// Scan 条码查询
func (s *Service) Scan(ctx context.Context, barcode string) (Product, error) {
	code := strings.TrimSpace(barcode)
	if code == "" {
		return Product{}, invalid("barcode required")
	}
	// 库存随时变化，只缓存"不存在"
	p, err := cache.GetOrLoadJSON(s.cache, ctx, barcodeCacheKey(code), cache.TTL{Absent: unknownBarcodeTTL},
		func(ctx context.Context) (*Product, error) {
			p, err := s.repo.FindByBarcode(ctx, code)
			if errors.Is(err, ErrProductNotFound) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			return &p, nil
		})
	if err != nil {
		return Product{}, err
	}
	if p == nil {
		return Product{}, ErrProductNotFound
	}
	return *p, nil
}

func (s *Service) RecordMovement(ctx context.Context, userID string, in MovementInput) (StockMovement, error) {
	if !in.Type.Valid() {
		return StockMovement{}, invalid("unknown movement type %q", in.Type)
	}
	if in.Quantity == 0 {
		return StockMovement{}, invalid("quantity must not be zero")
	}
	if in.Type != MovementAdjust && in.Quantity < 0 {
		return StockMovement{}, invalid("quantity must be positive for %s", in.Type)
	}
	m := StockMovement{
		ID:        uuid.NewString(),
		ProductID: strings.TrimSpace(in.ProductID),
		Type:      in.Type,
		Quantity:  in.Quantity,
		Note:      strings.TrimSpace(in.Note),
		UserID:    userID,
		CreatedAt: s.now(),
	}
	if err := s.repo.RecordMovement(ctx, &m); err != nil {
		return StockMovement{}, err
	}
	s.log.Info("stock movement",
		zap.String("product_id", m.ProductID),
		zap.String("type", string(m.Type)),
		zap.Int("quantity", m.Quantity),
		zap.Int("stock_after", m.StockAfter),
		zap.String("user_id", userID),
	)
	s.invalidateDashboard(ctx)
	return m, nil
}

func (s *Service) ListMovements(ctx context.Context, f MovementFilter) ([]StockMovement, int64, error) {
	return s.repo.ListMovements(ctx, f)
}

// Dashboard 统计走缓存，库存变更时失效
func (s *Service) Dashboard(ctx context.Context) (DashboardStats, error) {
	st, err := cache.GetOrLoadJSON(s.cache, ctx, dashboardCacheKey, cache.Fixed(s.ttl),
		func(ctx context.Context) (*DashboardStats, error) {
			v, err := s.repo.Stats(ctx, startOfDay(s.now()))
			if err != nil {
				return nil, err
			}
			return &v, nil
		})
	if err != nil {
		return DashboardStats{}, err
	}
	if st == nil {
		return DashboardStats{}, nil
	}
	return *st, nil
}

func (s *Service) invalidateDashboard(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, dashboardCacheKey); err != nil {
		s.log.Warn("dashboard cache invalidate failed", zap.Error(err))
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
