package models

import "errors"

// Sentinel errors returned by model-level validation methods. Repository
// and stage code wraps these with context via internal/errs.
var (
	ErrEmbeddingDimensionMismatch = errors.New("models: embedding vector length does not match declared dimension")
	ErrInvalidConfidenceScore     = errors.New("models: confidence score must be in [0, 1]")
	ErrChunkLinkCycle             = errors.New("models: chunk previous/next link would form a cycle")
	ErrErrorCodeManufacturerRequired = errors.New("models: error code requires a resolved manufacturer_id")
	ErrDuplicateDocument             = errors.New("models: a document with this file hash already exists")
)
