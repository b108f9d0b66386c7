package models

// ErrorCode is a manufacturer-defined fault/error code extracted from a
// document page by the error-code extraction stage. manufacturer_id is
// always set; an error code with no resolvable manufacturer is dropped by
// the extractor rather than persisted (see internal/pipeline/stages/errorcodeextraction).
type ErrorCode struct {
	BaseModel

	ManufacturerID ULID   `gorm:"not null;type:varchar(26);index:idx_errorcode_mfr_code" json:"manufacturer_id"`
	ProductID      *ULID  `gorm:"type:varchar(26);index" json:"product_id,omitempty"`
	ChunkID        *ULID  `gorm:"type:varchar(26);index" json:"chunk_id,omitempty"`
	DocumentID     ULID   `gorm:"not null;type:varchar(26);index" json:"document_id"`

	Code        string  `gorm:"not null;size:64;index:idx_errorcode_mfr_code" json:"error_code"`
	Description *string `gorm:"type:text" json:"error_description,omitempty"`
	SolutionText *string `gorm:"type:text" json:"solution_text,omitempty"`

	PageNumber int `gorm:"not null" json:"page_number"`

	// ConfidenceScore is in [0, 1] and reflects the pattern-matching
	// scoring described by the extractor: specificity, section cues,
	// disqualifiers, and position all contribute.
	ConfidenceScore float64 `gorm:"not null" json:"confidence_score"`

	SeverityLevel      *string `gorm:"size:32" json:"severity_level,omitempty"`
	RequiresTechnician *bool   `json:"requires_technician,omitempty"`
	RequiresParts      *bool   `json:"requires_parts,omitempty"`

	ContextText *string `gorm:"type:text" json:"context_text,omitempty"`

	// Metadata carries extractor bookkeeping: matched pattern id, the
	// solution-extraction strategy that produced SolutionText (a-e), and
	// any continuation lines merged into it.
	Metadata JSONMap `gorm:"type:text" json:"metadata,omitempty"`
}

// TableName returns the table name for ErrorCode.
func (ErrorCode) TableName() string {
	return "error_codes"
}

// Validate checks invariants that must hold before an ErrorCode is
// persisted: a resolvable manufacturer and a confidence score in range.
func (e *ErrorCode) Validate() error {
	if e.ManufacturerID.IsZero() {
		return ErrErrorCodeManufacturerRequired
	}
	if e.ConfidenceScore < 0 || e.ConfidenceScore > 1 {
		return ErrInvalidConfidenceScore
	}
	return nil
}
