package models

// AuditLog is a supplemental, append-only record of actions taken against
// a document outside the normal stage pipeline: manual reprocessing,
// pattern registry reloads that affected in-flight extraction, and
// operator-initiated status overrides. Not part of the original
// distillation but present in the broader ingestion system this engine
// replaces; kept here because operators need an audit trail independent
// of stage_statuses, which is overwritten on reprocessing.
type AuditLog struct {
	BaseModel

	DocumentID *ULID  `gorm:"type:varchar(26);index" json:"document_id,omitempty"`
	Action     string `gorm:"not null;size:100;index" json:"action"`
	Actor      *string `gorm:"size:255" json:"actor,omitempty"`
	Details    JSONMap `gorm:"type:text" json:"details,omitempty"`
}

// TableName returns the table name for AuditLog.
func (AuditLog) TableName() string {
	return "audit_logs"
}
