package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONMap is stored as a JSON text column so the same schema works on
// Postgres and the in-memory SQLite used by tests.
type JSONMap map[string]interface{}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("failed to scan JSONMap: %v", value)
	}
}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

type FloatArray []float64

func (a *FloatArray) Scan(value interface{}) error {
	if value == nil {
		*a = []float64{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("failed to scan FloatArray: %v", value)
	}
}

func (a FloatArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	return string(b), err
}

type Restaurant struct {
	ID             int64      `gorm:"primaryKey;autoIncrement"`
	Name           string     `gorm:"type:varchar(255);not null"`
	Theme          JSONMap    `gorm:"type:text"`
	TaxRate        string     `gorm:"type:decimal(5,4);not null;default:'0.0000'"`
	ServiceFeeRate string     `gorm:"type:decimal(5,4);not null;default:'0.0000'"`
	TipPresets     FloatArray `gorm:"type:text"`
	AdminTokenHash string     `gorm:"type:varchar(64);uniqueIndex;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Tables []Table `gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE"`
}

type Table struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	RestaurantID   int64  `gorm:"index;not null"`
	RestaurantSlug string `gorm:"type:varchar(50);default:'rest1'"`
	TableNumber    string `gorm:"type:varchar(10);default:'1'"`
	Name           string `gorm:"type:varchar(100);not null"`
	TableTokenHash string `gorm:"type:varchar(64);uniqueIndex;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Restaurant *Restaurant `gorm:"foreignKey:RestaurantID"`
}

// PublicToken is the printable table identifier shown to staff, not the
// scan token itself.
func (t Table) PublicToken() string {
	return t.RestaurantSlug + "-" + t.TableNumber
}

type MenuCategory struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	RestaurantID int64  `gorm:"index;not null"`
	Name         string `gorm:"type:varchar(255);not null"`
	Position     int32  `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Items []MenuItem `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
}

type MenuItem struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	RestaurantID int64   `gorm:"index;not null"`
	CategoryID   int64   `gorm:"index;not null"`
	Name         string  `gorm:"type:varchar(255);not null"`
	Description  string  `gorm:"type:text"`
	PriceCents   int64   `gorm:"not null"`
	ImageURL     *string `gorm:"type:varchar(512)"`
	Available    bool    `gorm:"not null;default:true"`
	Options      JSONMap `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Category *MenuCategory `gorm:"foreignKey:CategoryID"`
}

type Bill struct {
	ID              int64 `gorm:"primaryKey;autoIncrement"`
	RestaurantID    int64 `gorm:"index;not null"`
	TableID         int64 `gorm:"index;not null"`
	IsOpen          bool  `gorm:"not null;default:true"`
	SubtotalCents   int64 `gorm:"not null;default:0"`
	TaxCents        int64 `gorm:"not null;default:0"`
	ServiceFeeCents int64 `gorm:"not null;default:0"`
	TipCents        int64 `gorm:"not null;default:0"`
	TotalCents      int64 `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Lines    []BillLine `gorm:"foreignKey:BillID;constraint:OnDelete:CASCADE"`
	Payments []Payment  `gorm:"foreignKey:BillID;constraint:OnDelete:CASCADE"`
	Table    *Table     `gorm:"foreignKey:TableID"`
}

type BillLine struct {
	ID              int64     `gorm:"primaryKey;autoIncrement"`
	BillID          int64     `gorm:"index;not null"`
	ItemID          *int64    `gorm:"index"`
	NameSnapshot    string    `gorm:"type:varchar(255);not null"`
	OptionsSnapshot JSONMap   `gorm:"type:text"`
	Qty             int32     `gorm:"not null;default:1"`
	UnitPriceCents  int64     `gorm:"not null"`
	LineTotalCents  int64     `gorm:"not null"`
	SessionID       string    `gorm:"type:varchar(64);index"`
	OrderedAt       time.Time `gorm:"autoCreateTime"`

	Item *MenuItem `gorm:"foreignKey:ItemID;constraint:OnDelete:SET NULL"`
}

const (
	PaymentStatusPending   = "pending"
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
)

type Payment struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	BillID      int64  `gorm:"index;not null"`
	Status      string `gorm:"type:varchar(20);not null;default:'pending'"`
	AmountCents int64  `gorm:"not null"`
	Provider    string `gorm:"type:varchar(50);not null;default:'stripe'"`
	ProviderRef string `gorm:"type:varchar(255)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
