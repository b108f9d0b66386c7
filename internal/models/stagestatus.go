package models

// StageState is the lifecycle state of a single (document, stage) pair,
// independent of the QueueItem used to schedule its execution.
type StageState string

const (
	StageStateNotStarted StageState = "not_started"
	StageStateRunning    StageState = "running"
	StageStateCompleted  StageState = "completed"
	StageStateFailed     StageState = "failed"
	StageStateSkipped    StageState = "skipped"
)

// StageStatus tracks the current and historical state of one pipeline
// stage for one document. (document_id, stage) is unique; the orchestrator
// reads this table to decide which stage a document should run next.
type StageStatus struct {
	BaseModel

	DocumentID ULID       `gorm:"not null;type:varchar(26);uniqueIndex:idx_stagestatus_doc_stage" json:"document_id"`
	Stage      string     `gorm:"not null;size:50;uniqueIndex:idx_stagestatus_doc_stage" json:"stage"`
	State      StageState `gorm:"not null;default:'not_started';size:20;index" json:"state"`

	StartedAt  *Time `json:"started_at,omitempty"`
	FinishedAt *Time `json:"finished_at,omitempty"`

	ErrorKind    *string `gorm:"size:50" json:"error_kind,omitempty"`
	ErrorMessage *string `gorm:"type:text" json:"error_message,omitempty"`
	RetryCount   int     `gorm:"not null;default:0" json:"retry_count"`
}

// TableName returns the table name for StageStatus.
func (StageStatus) TableName() string {
	return "stage_statuses"
}

// IsDone reports whether the stage has reached a state that no longer
// blocks progression to the next stage (completed or skipped).
func (s *StageStatus) IsDone() bool {
	return s.State == StageStateCompleted || s.State == StageStateSkipped
}
