package models

import "time"

// QueueStatus is the lifecycle state of a QueueItem.
type QueueStatus string

const (
	QueueStatusPending  QueueStatus = "pending"
	QueueStatusLeased   QueueStatus = "leased"
	QueueStatusCompleted QueueStatus = "completed"
	QueueStatusFailed   QueueStatus = "failed"
	QueueStatusRetrying QueueStatus = "retrying"
)

// QueueItem is a unit of pipeline work: one document waiting to run one
// stage. (document_id, stage) is unique while the item is pending or
// leased, enforced by the queue repository rather than a DB constraint
// because completed/failed history for the same pair must be retained.
type QueueItem struct {
	BaseModel

	DocumentID ULID        `gorm:"not null;type:varchar(26);index:idx_queue_doc_stage" json:"document_id"`
	Stage      string      `gorm:"not null;size:50;index:idx_queue_doc_stage" json:"stage"`
	Priority   int         `gorm:"not null;default:0;index" json:"priority"`
	Status     QueueStatus `gorm:"not null;default:'pending';size:20;index" json:"status"`

	Attempts    int `gorm:"not null;default:0" json:"attempts"`
	MaxAttempts int `gorm:"not null;default:5" json:"max_attempts"`

	// LeaseOwner and LeaseDeadline implement the same claim-and-recover
	// idiom as the durable job queue this was grounded on: a worker sets
	// both atomically on acquire, and the stage runner's lease-recovery
	// loop (QueueRepository.RecoverExpiredLeases) requeues items whose
	// lease has expired without a matching completion.
	LeaseOwner    *string `gorm:"size:128" json:"lease_owner,omitempty"`
	LeaseDeadline *Time   `json:"lease_deadline,omitempty"`

	EnqueuedAt Time  `gorm:"not null" json:"enqueued_at"`
	StartedAt  *Time `json:"started_at,omitempty"`
	FinishedAt *Time `json:"finished_at,omitempty"`

	LastError *string `gorm:"type:text" json:"last_error,omitempty"`
}

// TableName returns the table name for QueueItem.
func (QueueItem) TableName() string {
	return "queue_items"
}

// CalculateNextBackoff returns the delay before the next retry attempt,
// doubling per attempt and capped at one hour, matching the backoff
// policy used by the durable job queue this model descends from.
func (q *QueueItem) CalculateNextBackoff() Time {
	const capSeconds = 3600
	shift := q.Attempts - 1
	if shift < 0 {
		shift = 0
	}
	if shift > 12 { // 1<<12 seconds already exceeds the cap
		shift = 12
	}
	backoffSeconds := 1 << shift
	if backoffSeconds > capSeconds {
		backoffSeconds = capSeconds
	}
	return Now().Add(time.Duration(backoffSeconds) * time.Second)
}

// IsTerminal reports whether the item has reached completed or failed
// with no further retries configured.
func (q *QueueItem) IsTerminal() bool {
	if q.Status == QueueStatusCompleted {
		return true
	}
	return q.Status == QueueStatusFailed && q.Attempts >= q.MaxAttempts
}
