package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type ProductCategory string

const (
	CategoryCPU         ProductCategory = "cpu"
	CategoryGPU         ProductCategory = "gpu"
	CategoryMotherboard ProductCategory = "motherboard"
	CategoryRAM         ProductCategory = "ram"
	CategoryStorage     ProductCategory = "storage"
	CategoryPSU         ProductCategory = "psu"
	CategoryCase        ProductCategory = "case"
	CategoryCooling     ProductCategory = "cooling"
	CategoryPeripheral  ProductCategory = "peripheral"
)

// SyncStatus records the outcome of the two-tier catalog write: a product
// created here is also pushed to the remote catalog service, and the push
// result is persisted instead of being logged and forgotten.
type SyncStatus string

const (
	SyncStatusSynced    SyncStatus = "synced"
	SyncStatusLocalOnly SyncStatus = "local_only"
)

type Product struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	Name          string          `gorm:"not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         int             `gorm:"not null;check:price >= 0" json:"price"`
	Category      ProductCategory `gorm:"type:varchar(50)" json:"category"`
	StockQuantity int             `gorm:"not null;default:0;check:stock_quantity >= 0" json:"stock_quantity"`
	ImageURL      string          `json:"image_url"`
	GalleryImages pq.StringArray  `gorm:"type:text[];default:'{}'" json:"gallery_images"`
	SyncStatus    SyncStatus      `gorm:"type:varchar(20);default:'local_only'" json:"sync_status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relationships
	CartItems []CartItem `gorm:"foreignKey:ProductID" json:"-"`
}

func (Product) TableName() string {
	return "products"
}
