package models

// PipelineErrorStatus is the resolution lifecycle of a PipelineError.
type PipelineErrorStatus string

const (
	PipelineErrorStatusPending  PipelineErrorStatus = "pending"
	PipelineErrorStatusRetrying PipelineErrorStatus = "retrying"
	PipelineErrorStatusResolved PipelineErrorStatus = "resolved"
)

// PipelineError records a single stage failure for a document, carrying
// enough of the internal/errs taxonomy to classify and report it without
// re-inspecting stage code.
type PipelineError struct {
	BaseModel

	DocumentID ULID   `gorm:"not null;type:varchar(26);index" json:"document_id"`
	Stage      string `gorm:"not null;size:50;index" json:"stage"`

	// ErrorKind mirrors internal/errs.Kind (input, precondition, transient,
	// data, internal) and, with RetryCount/MaxRetries, determines
	// IsRetryable.
	ErrorKind    string `gorm:"not null;size:20;index" json:"error_kind"`
	ErrorMessage string `gorm:"not null;type:text" json:"error_message"`
	Severity     string `gorm:"not null;size:20;default:'error'" json:"severity"`

	Status      PipelineErrorStatus `gorm:"not null;default:'pending';size:20;index" json:"status"`
	RetryCount  int                 `gorm:"not null;default:0" json:"retry_count"`
	MaxRetries  int                 `gorm:"not null;default:3" json:"max_retries"`

	ResolvedAt       *Time   `json:"resolved_at,omitempty"`
	ResolvedBy       *string `gorm:"size:255" json:"resolved_by,omitempty"`
	ResolutionNotes  *string `gorm:"type:text" json:"resolution_notes,omitempty"`
}

// TableName returns the table name for PipelineError.
func (PipelineError) TableName() string {
	return "pipeline_errors"
}

// IsRetryable reports whether this error is eligible for another attempt,
// based on its kind and remaining retry budget.
func (p *PipelineError) IsRetryable() bool {
	if p.Status == PipelineErrorStatusResolved {
		return false
	}
	if p.RetryCount >= p.MaxRetries {
		return false
	}
	switch p.ErrorKind {
	case "transient":
		return true
	default:
		return false
	}
}
