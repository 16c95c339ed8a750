// Package products is the demo product catalogue served by datagrid.
package products

import (
	"time"

	"datagrid/internal/core/types"
)

// TableName is the registered table name.
const TableName = "products"

// Status is a product's lifecycle status.
type Status string

const (
	StatusActive       Status = "active"
	StatusInactive     Status = "inactive"
	StatusOutOfStock   Status = "out_of_stock"
	StatusDiscontinued Status = "discontinued"
)

// Category groups products.
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryFashion     Category = "fashion"
	CategoryGrocery     Category = "grocery"
	CategoryHome        Category = "home"
	CategoryBeauty      Category = "beauty"
	CategorySports      Category = "sports"
)

var (
	statuses        = []Status{StatusActive, StatusInactive, StatusOutOfStock, StatusDiscontinued}
	categories      = []Category{CategoryElectronics, CategoryFashion, CategoryGrocery, CategoryHome, CategoryBeauty, CategorySports}
	currencies      = []string{"USD", "EUR", "INR"}
	shippingClasses = []string{"standard", "express", "freight"}
	roles           = []string{"Admin", "Editor", "Viewer"}
)

// User owns products.
type User struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	AvatarURL string `db:"avatar_url" json:"avatarUrl"`
	Role      string `db:"role" json:"role"`
	Email     string `db:"email" json:"email"`
}

// String is what filters and search see for an owner.
func (u User) String() string { return u.Name }

// Product is one catalogue row.
type Product struct {
	// Core identity
	ID          string   `db:"id" json:"id" label:"ID" filter:"-" grid:"nosearch"`
	SKU         string   `db:"sku" json:"sku" label:"SKU" placeholder:"Search SKU..."`
	Barcode     string   `db:"barcode" json:"barcode" placeholder:"Search barcode..."`
	Name        string   `db:"name" json:"name" placeholder:"Search names..."`
	Description string   `db:"description" json:"description" filter:"-" grid:"nosort"`
	Brand       string   `db:"brand" json:"brand" placeholder:"Search brand..."`
	Category    Category `db:"category" json:"category" placeholder:"Filter category..." options:"electronics|fashion|grocery|home|beauty|sports"`

	// Pricing
	CostPrice       types.Money `db:"cost_price" json:"costPrice" label:"Cost" placeholder:"Filter cost..."`
	RetailPrice     types.Money `db:"retail_price" json:"retailPrice" label:"Retail" placeholder:"Filter retail..."`
	DiscountPercent int         `db:"discount_percent" json:"discountPercent" label:"Discount %" filter:"range" placeholder:"Filter discount..."`
	FinalPrice      types.Money `db:"final_price" json:"finalPrice" placeholder:"Filter price..."`
	Currency        string      `db:"currency" json:"currency" options:"USD|EUR|INR"`

	// Inventory
	StockQty          int    `db:"stock_qty" json:"stockQty" label:"Stock" placeholder:"Filter stock..."`
	ReservedQty       int    `db:"reserved_qty" json:"reservedQty" label:"Reserved" placeholder:"Filter reserved..."`
	ReorderLevel      int    `db:"reorder_level" json:"reorderLevel" label:"Reorder @" placeholder:"Filter reorder..."`
	WarehouseLocation string `db:"warehouse_location" json:"warehouseLocation" label:"Warehouse" placeholder:"Search warehouse..."`
	SupplierName      string `db:"supplier_name" json:"supplierName" label:"Supplier" placeholder:"Search supplier..."`
	SupplierEmail     string `db:"supplier_email" json:"supplierEmail" placeholder:"Search email..."`

	// Status & flags
	Status       Status `db:"status" json:"status" placeholder:"Filter status..." options:"active|inactive|out_of_stock|discontinued"`
	IsFeatured   bool   `db:"is_featured" json:"isFeatured" label:"Featured"`
	IsReturnable bool   `db:"is_returnable" json:"isReturnable" label:"Returnable"`
	IsTaxable    bool   `db:"is_taxable" json:"isTaxable" label:"Taxable"`

	// Ratings & analytics
	Rating      float64 `db:"rating" json:"rating" filter:"range" placeholder:"Filter rating..."`
	ReviewCount int     `db:"review_count" json:"reviewCount" label:"Reviews"`
	Views       int     `db:"views" json:"views"`
	SalesCount  int     `db:"sales_count" json:"salesCount" label:"Sales"`

	// Dimensions & logistics
	WeightKg      float64 `db:"weight_kg" json:"weightKg" label:"Weight (kg)"`
	HeightCm      float64 `db:"height_cm" json:"heightCm" label:"Height (cm)"`
	WidthCm       float64 `db:"width_cm" json:"widthCm" label:"Width (cm)"`
	LengthCm      float64 `db:"length_cm" json:"lengthCm" label:"Length (cm)"`
	ShippingClass string  `db:"shipping_class" json:"shippingClass" options:"standard|express|freight"`

	// Dates
	LaunchDate      time.Time  `db:"launch_date" json:"launchDate"`
	LastRestockedAt *time.Time `db:"last_restocked_at" json:"lastRestockedAt" label:"Restocked At"`
	ExpiryDate      *time.Time `db:"expiry_date" json:"expiryDate"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt" label:"Created" filter:"dateRange"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt" label:"Updated"`

	// Metadata
	Tags  []string `db:"tags" json:"tags" placeholder:"Search tags..."`
	Notes *string  `db:"notes" json:"notes" filter:"text" placeholder:"Search notes..."`

	Owner User `db:"owner" json:"owner" placeholder:"Search owner..."`
}

// RowID returns the product id.
func RowID(p Product) string { return p.ID }

// Available is stock not reserved by open orders.
func (p Product) Available() int {
	return max(p.StockQty-p.ReservedQty, 0)
}
