package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound   = errors.New("inventory: product not found")
	ErrDuplicateBarcode  = errors.New("inventory: barcode already exists")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

type ProductFilter struct {
	Q            string // 名称/条码模糊搜
	Category     string
	LowStockOnly bool
	Offset       int
	Limit        int
}

type MovementFilter struct {
	ProductID string
	Type      MovementType
	Offset    int
	Limit     int
}

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Migrate() error { return r.db.AutoMigrate(&Product{}, &StockMovement{}) }

func (r *Repo) CreateProduct(ctx context.Context, p *Product) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if err != nil && isDupKey(err) {
		return ErrDuplicateBarcode
	}
	return err
}

func (r *Repo) FindProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

func (r *Repo) FindByBarcode(ctx context.Context, code string) (Product, error) {
	var p Product
	err := r.db.WithContext(ctx).Where("barcode = ? AND active = ?", code, true).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

func (r *Repo) ListProducts(ctx context.Context, f ProductFilter) ([]Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&Product{}).Where("active = ?", true)
	if s := strings.TrimSpace(f.Q); s != "" {
		like := "%" + s + "%"
		q = q.Where("name LIKE ? OR barcode LIKE ?", like, like)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.LowStockOnly {
		q = q.Where("stock <= min_stock")
	}

	q = q.Session(&gorm.Session{}) // Count 与 Find 共用条件
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ps []Product
	err := q.Order("name ASC").Offset(f.Offset).Limit(clampLimit(f.Limit)).Find(&ps).Error
	return ps, total, err
}

// RecordMovement 事务内：条件更新库存（不允许变为负数）并写流水。
// m.StockBefore/StockAfter 由这里回填。
func (r *Repo) RecordMovement(ctx context.Context, m *StockMovement) error {
	delta := m.Delta()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Product
		if err := tx.Where("id = ?", m.ProductID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		res := tx.Model(&Product{}).
			Where("id = ? AND stock + ? >= 0", m.ProductID, delta).
			Update("stock", gorm.Expr("stock + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientStock
		}

		var after int
		if err := tx.Model(&Product{}).Where("id = ?", m.ProductID).
			Select("stock").Scan(&after).Error; err != nil {
			return err
		}
		m.StockAfter = after
		m.StockBefore = after - delta
		return tx.Create(m).Error
	})
}

func (r *Repo) ListMovements(ctx context.Context, f MovementFilter) ([]StockMovement, int64, error) {
	q := r.db.WithContext(ctx).Model(&StockMovement{})
	if f.ProductID != "" {
		q = q.Where("product_id = ?", f.ProductID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}

	q = q.Session(&gorm.Session{}) // Count 与 Find 共用条件
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ms []StockMovement
	err := q.Preload("Product").Order("created_at DESC").
		Offset(f.Offset).Limit(clampLimit(f.Limit)).Find(&ms).Error
	return ms, total, err
}

func (r *Repo) Stats(ctx context.Context, since time.Time) (DashboardStats, error) {
	var s DashboardStats
	db := r.db.WithContext(ctx)
	active := db.Model(&Product{}).Where("active = ?", true).Session(&gorm.Session{})

	if err := active.Count(&s.Products).Error; err != nil {
		return s, err
	}
	if err := active.Where("stock <= min_stock").Count(&s.LowStock).Error; err != nil {
		return s, err
	}
	if err := db.Model(&StockMovement{}).Where("created_at >= ?", since).Count(&s.MovementsToday).Error; err != nil {
		return s, err
	}

	var value decimal.NullDecimal
	if err := active.Select("SUM(price * stock)").Row().Scan(&value); err != nil {
		return s, err
	}
	if value.Valid {
		s.StockValue = value.Decimal.Round(2)
	}
	return s, nil
}

func clampLimit(n int) int {
	if n <= 0 || n > 100 {
		return 20
	}
	return n
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
