package models

// ImageType enumerates the rasterization class of an extracted image,
// which determines how the Image Extractor decodes and stores it.
type ImageType string

const (
	ImageTypeRaster        ImageType = "raster"
	ImageTypeSVG           ImageType = "svg"
	ImageTypeVectorGraphic ImageType = "vector_graphic"
)

// Image is a figure, diagram, or photo extracted from a document page.
// BlobRef points into the blob store's document-images/error-images/
// parts-images buckets; the image's bytes are never stored in the
// relational database.
type Image struct {
	BaseModel

	DocumentID ULID      `gorm:"not null;type:varchar(26);index" json:"document_id"`
	PageNumber int       `gorm:"not null;index" json:"page_number"`
	ImageType  ImageType `gorm:"not null;size:20" json:"image_type"`

	BlobRef string `gorm:"not null;size:512" json:"blob_ref"`

	ContextText *string `gorm:"type:text" json:"context_text,omitempty"`
	OCRText     *string `gorm:"type:text" json:"ocr_text,omitempty"`

	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`
}

// TableName returns the table name for Image.
func (Image) TableName() string {
	return "images"
}

// LinkType enumerates the kind of external resource a Link points to.
type LinkType string

const (
	LinkTypeWebPage      LinkType = "web_page"
	LinkTypeDownload     LinkType = "download"
	LinkTypeVideo        LinkType = "video"
	LinkTypeManufacturer LinkType = "manufacturer_reference"
)

// ValidationStatus is the outcome of the Link/Video Enricher's most
// recent liveness check against a Link or Video's URL.
type ValidationStatus string

const (
	ValidationStatusUnchecked  ValidationStatus = "unchecked"
	ValidationStatusOK         ValidationStatus = "ok"
	ValidationStatusBroken     ValidationStatus = "broken"
	ValidationStatusRedirected ValidationStatus = "redirected"
)

// Link is a hyperlink discovered in a document page, enriched with a
// fetched page title and liveness validation.
type Link struct {
	BaseModel

	DocumentID ULID     `gorm:"not null;type:varchar(26);index" json:"document_id"`
	PageNumber int      `gorm:"not null;index" json:"page_number"`
	URL        string   `gorm:"not null;size:2048" json:"url"`
	LinkType   LinkType `gorm:"not null;size:32" json:"link_type"`

	Title            *string          `gorm:"size:512" json:"title,omitempty"`
	ValidationStatus ValidationStatus `gorm:"not null;default:'unchecked';size:20" json:"validation_status"`
	ResolvedURL      *string          `gorm:"size:2048" json:"resolved_url,omitempty"`
	LastCheckedAt    *Time            `json:"last_checked_at,omitempty"`
}

// TableName returns the table name for Link.
func (Link) TableName() string {
	return "links"
}

// Video is a video reference discovered in a document page, most often an
// embedded or linked manufacturer how-to video. It mirrors Link but
// additionally carries a provider-reported duration once enriched.
type Video struct {
	BaseModel

	DocumentID ULID   `gorm:"not null;type:varchar(26);index" json:"document_id"`
	PageNumber int    `gorm:"not null;index" json:"page_number"`
	URL        string `gorm:"not null;size:2048" json:"url"`

	Title            *string          `gorm:"size:512" json:"title,omitempty"`
	DurationSeconds  *int             `json:"duration_seconds,omitempty"`
	Provider         *string          `gorm:"size:100" json:"provider,omitempty"`
	ValidationStatus ValidationStatus `gorm:"not null;default:'unchecked';size:20" json:"validation_status"`
	LastCheckedAt    *Time            `json:"last_checked_at,omitempty"`
}

// TableName returns the table name for Video.
func (Video) TableName() string {
	return "videos"
}
