package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID       string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Barcode  string          `gorm:"uniqueIndex;size:64;not null" json:"barcode"`
	Name     string          `gorm:"index;size:128;not null" json:"name"`
	Category string          `gorm:"size:64;not null;default:''" json:"category"`
	Unit     string          `gorm:"size:16;not null;default:'Stück'" json:"unit"`
	Price    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock    int             `gorm:"not null;default:0" json:"stock"`
	MinStock int             `gorm:"not null;default:0" json:"minStock"`
	Active   bool            `gorm:"not null;default:true" json:"active"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Product) TableName() string { return "products" }

func (p Product) LowStock() bool { return p.Stock <= p.MinStock }

type MovementType string

const (
	MovementIn     MovementType = "in"     // 入库
	MovementOut    MovementType = "out"    // 出库
	MovementAdjust MovementType = "adjust" // 盘点修正，Quantity 可正可负
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjust:
		return true
	}
	return false
}

// StockMovement 每次库存变化一条记录
type StockMovement struct {
	ID          string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ProductID   string       `gorm:"type:varchar(36);not null;index" json:"productId"`
	Type        MovementType `gorm:"size:16;not null" json:"type"`
	Quantity    int          `gorm:"not null" json:"quantity"`
	StockBefore int          `gorm:"not null" json:"stockBefore"`
	StockAfter  int          `gorm:"not null" json:"stockAfter"`
	Note        string       `gorm:"size:255" json:"note"`
	UserID      string       `gorm:"type:varchar(32);not null;index" json:"userId"`
	CreatedAt   time.Time    `gorm:"index" json:"createdAt"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (StockMovement) TableName() string { return "stock_movements" }

// Delta 对库存的有符号影响
func (m StockMovement) Delta() int {
	switch m.Type {
	case MovementOut:
		return -abs(m.Quantity)
	case MovementIn:
		return abs(m.Quantity)
	default:
		return m.Quantity
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// DashboardStats 首页统计
type DashboardStats struct {
	Products       int64           `json:"products"`
	LowStock       int64           `json:"lowStock"`
	MovementsToday int64           `json:"movementsToday"`
	StockValue     decimal.Decimal `json:"stockValue"`
}
