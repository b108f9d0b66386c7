package models

import "strings"

// Manufacturer is a shared entity referenced by documents, products, and
// error codes. It is created on demand by the extractor layer the first
// time a name is encountered and is never mutated by extractors once
// created.
type Manufacturer struct {
	BaseModel

	// Name is the display name, unique case-insensitively.
	Name string `gorm:"not null;uniqueIndex;size:255" json:"name"`

	// PatternKey is the stable lowercase identifier used to resolve the
	// manufacturer's error-code pattern set in the Manufacturer Pattern
	// Registry. It defaults to the normalized name unless a rebrand alias
	// maps it elsewhere (see internal/patterns).
	PatternKey string `gorm:"not null;index;size:255" json:"pattern_key"`

	ContactEmail *string `gorm:"size:255" json:"contact_email,omitempty"`
	ContactPhone *string `gorm:"size:64" json:"contact_phone,omitempty"`
	Website      *string `gorm:"size:255" json:"website,omitempty"`
}

// TableName returns the table name for Manufacturer.
func (Manufacturer) TableName() string {
	return "manufacturers"
}

// NormalizeManufacturerName lowercases and trims a manufacturer name for
// case-insensitive lookup and pattern-key derivation.
func NormalizeManufacturerName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ProductSeries groups related products under a manufacturer, e.g. a
// printer line. (manufacturer_id, name) is unique.
type ProductSeries struct {
	BaseModel

	ManufacturerID ULID   `gorm:"not null;type:varchar(26);uniqueIndex:idx_series_mfr_name" json:"manufacturer_id"`
	Name           string `gorm:"not null;size:255;uniqueIndex:idx_series_mfr_name" json:"name"`
}

// TableName returns the table name for ProductSeries.
func (ProductSeries) TableName() string {
	return "product_series"
}

// Product is a manufacturer's model, optionally grouped into a series.
// (manufacturer_id, model_number) is unique.
type Product struct {
	BaseModel

	ManufacturerID ULID    `gorm:"not null;type:varchar(26);uniqueIndex:idx_product_mfr_model" json:"manufacturer_id"`
	ModelNumber    string  `gorm:"not null;size:255;uniqueIndex:idx_product_mfr_model" json:"model_number"`
	SeriesID       *ULID   `gorm:"type:varchar(26);index" json:"series_id,omitempty"`
	Type           string  `gorm:"size:100" json:"type,omitempty"`

	// Specifications holds open key/value attributes as a JSON document.
	Specifications JSONMap `gorm:"type:text" json:"specifications,omitempty"`

	// OEMManufacturerID records the original-equipment manufacturer when
	// this product is a rebrand (e.g. a UTAX model built by Kyocera).
	OEMManufacturerID *ULID `gorm:"type:varchar(26);index" json:"oem_manufacturer_id,omitempty"`
}

// TableName returns the table name for Product.
func (Product) TableName() string {
	return "products"
}
