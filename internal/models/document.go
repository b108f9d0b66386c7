package models

// DocumentType enumerates the kinds of technical documents KRAI ingests.
type DocumentType string

const (
	DocumentTypeServiceManual        DocumentType = "service_manual"
	DocumentTypePartsCatalog         DocumentType = "parts_catalog"
	DocumentTypeTechnicalBulletin    DocumentType = "technical_bulletin"
	DocumentTypeCPMDDatabase         DocumentType = "cpmd_database"
	DocumentTypeUserManual           DocumentType = "user_manual"
	DocumentTypeInstallationGuide    DocumentType = "installation_guide"
	DocumentTypeTroubleshootingGuide DocumentType = "troubleshooting_guide"
)

// ValidDocumentTypes lists every recognized DocumentType.
func ValidDocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypeServiceManual,
		DocumentTypePartsCatalog,
		DocumentTypeTechnicalBulletin,
		DocumentTypeCPMDDatabase,
		DocumentTypeUserManual,
		DocumentTypeInstallationGuide,
		DocumentTypeTroubleshootingGuide,
	}
}

// IsValid reports whether d is one of the recognized document types.
func (d DocumentType) IsValid() bool {
	for _, v := range ValidDocumentTypes() {
		if v == d {
			return true
		}
	}
	return false
}

// ProcessingStatus is the coarse-grained lifecycle state of a Document.
type ProcessingStatus string

const (
	ProcessingStatusPending    ProcessingStatus = "pending"
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusFailed     ProcessingStatus = "failed"
)

// Document is the root record for an ingested technical document.
// It is created on ingest and never deleted by the engine; it is mutated
// only by the orchestrator and the stage runner.
type Document struct {
	BaseModel

	Filename string `gorm:"not null;size:512" json:"filename"`

	// FileHash is the sha256 content hash of the original upload, unique
	// across all documents. Used for duplicate detection on ingest.
	FileHash string `gorm:"not null;uniqueIndex;size:64" json:"file_hash"`

	FileSize int64 `gorm:"not null" json:"file_size"`

	DocumentType DocumentType `gorm:"not null;size:50;index" json:"document_type"`

	ManufacturerID *ULID `gorm:"type:varchar(26);index" json:"manufacturer_id,omitempty"`

	Language *string `gorm:"size:16" json:"language,omitempty"`

	PageCount *int `json:"page_count,omitempty"`

	ProcessingStatus ProcessingStatus `gorm:"not null;default:'pending';size:20;index" json:"processing_status"`

	// CurrentStage is the stage identifier the document is at or last
	// completed. Nil before the first stage starts.
	CurrentStage *string `gorm:"size:50" json:"current_stage,omitempty"`

	UploadedBy *string `gorm:"size:255" json:"uploaded_by,omitempty"`
}

// TableName returns the table name for Document.
func (Document) TableName() string {
	return "documents"
}

// HasManufacturer reports whether a manufacturer has been resolved for
// this document.
func (d *Document) HasManufacturer() bool {
	return d.ManufacturerID != nil && !d.ManufacturerID.IsZero()
}

// IsTerminal reports whether the document has reached a final processing
// status (completed or failed).
func (d *Document) IsTerminal() bool {
	return d.ProcessingStatus == ProcessingStatusCompleted || d.ProcessingStatus == ProcessingStatusFailed
}
