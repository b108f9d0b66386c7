package models

// Chunk is a contiguous span of a document's extracted text, carrying
// section-hierarchy metadata and reading-order links. Chunks of a
// document form a doubly-linked list in reading order; (document_id,
// ordinal) is unique.
type Chunk struct {
	BaseModel

	DocumentID ULID `gorm:"not null;type:varchar(26);uniqueIndex:idx_chunk_doc_ordinal" json:"document_id"`

	// Ordinal is the chunk's 0-based position within the document's
	// reading order, independent of page number.
	Ordinal int `gorm:"not null;uniqueIndex:idx_chunk_doc_ordinal" json:"ordinal"`

	PageNumber int `gorm:"not null;index" json:"page_number"`

	// SectionHierarchy is the ordered path of headings the chunk falls
	// under, e.g. ["Chapter 4", "Maintenance", "Cleaning the CIS unit"].
	SectionHierarchy StringSlice `gorm:"type:text" json:"section_hierarchy,omitempty"`

	SectionLevel int `json:"section_level"`

	Text string `gorm:"type:text;not null" json:"text"`

	PreviousChunkID *ULID `gorm:"type:varchar(26);index" json:"previous_chunk_id,omitempty"`
	NextChunkID     *ULID `gorm:"type:varchar(26);index" json:"next_chunk_id,omitempty"`
}

// TableName returns the table name for Chunk.
func (Chunk) TableName() string {
	return "chunks"
}

// EmbeddingOwnerKind enumerates the entity kinds an Embedding can belong to.
type EmbeddingOwnerKind string

const (
	EmbeddingOwnerChunk EmbeddingOwnerKind = "chunk"
	EmbeddingOwnerImage EmbeddingOwnerKind = "image"
	EmbeddingOwnerTable EmbeddingOwnerKind = "table"
)

// Embedding is a fixed-length numeric vector associated with a chunk,
// image, or table under a named model. (owner_kind, owner_id, model_name)
// is unique — records for different model names coexist.
type Embedding struct {
	BaseModel

	OwnerKind EmbeddingOwnerKind `gorm:"not null;size:20;uniqueIndex:idx_embedding_owner_model" json:"owner_kind"`
	OwnerID   ULID               `gorm:"not null;type:varchar(26);uniqueIndex:idx_embedding_owner_model" json:"owner_id"`
	ModelName string             `gorm:"not null;size:128;uniqueIndex:idx_embedding_owner_model" json:"model_name"`

	Dimension int         `gorm:"not null" json:"dimension"`
	Vector    FloatVector `gorm:"type:text;not null" json:"vector"`
}

// TableName returns the table name for Embedding.
func (Embedding) TableName() string {
	return "embeddings"
}

// Validate checks that the stored vector's length matches Dimension, per
// the external-interfaces requirement that the adapter enforce equality
// between configured dimension and inserted vector length.
func (e *Embedding) Validate() error {
	if len(e.Vector) != e.Dimension {
		return ErrEmbeddingDimensionMismatch
	}
	return nil
}
