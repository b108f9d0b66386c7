// Package textextraction implements the first pipeline stage: pulling raw
// per-page text out of the original document blob.
package textextraction

import (
	"bytes"
	"context"
	"fmt"

	"github.com/krai/engine/internal/blobstore"
	"github.com/krai/engine/internal/errs"
	"github.com/krai/engine/internal/pipeline/core"
	"github.com/krai/engine/internal/pipeline/shared"
)

// StageID is the fixed stage identifier used in the queue and in
// stage_statuses rows.
const StageID = "text_extraction"

// formFeed is the page-separator byte convention produced by the
// upstream document-conversion step that deposits the original upload
// into the blob store; PDF rendering itself is outside this engine's
// scope (see the component that owns document ingest, upstream of the
// queue).
const formFeed = '\f'

// Stage extracts per-page text from a document's original blob and
// populates State.PageTexts.
type Stage struct {
	shared.BaseStage
	blobStore *blobstore.Store
}

// New creates the text extraction stage.
func New(deps *core.Dependencies) core.Stage {
	s := &Stage{
		BaseStage: shared.NewBaseStage(StageID, "Text Extraction"),
		blobStore: deps.BlobStore,
	}
	return s
}

func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()

	if state.Document == nil {
		return nil, errs.Precondition(StageID, "document record is required", "re-ingest the document")
	}

	key := blobstore.OriginalKey(state.Document.FileHash, state.Document.Filename)
	raw, err := s.blobStore.Get(blobstore.BucketDocuments, key, blobstore.CodecNone)
	if err != nil {
		return nil, errs.Wrap(errs.KindInput, StageID, "reading original document blob", err)
	}
	if len(raw) == 0 {
		return nil, errs.New(errs.KindInput, StageID, "original document blob is empty")
	}

	pages := bytes.Split(raw, []byte{formFeed})
	for i, page := range pages {
		pageNumber := i + 1
		state.PageTexts[pageNumber] = string(page)

		artifact := core.NewArtifact(core.ArtifactTypePageText, core.ProcessingStageRaw, StageID).
			WithRecordCount(1).
			WithFileSize(int64(len(page))).
			WithMetadata("page_number", pageNumber)
		state.AddArtifact(StageID, artifact)
	}

	pageCount := len(pages)
	state.Document.PageCount = &pageCount

	result.RecordsProcessed = pageCount
	result.RecordsModified = pageCount
	result.Message = fmt.Sprintf("extracted text for %d pages", pageCount)
	result.Artifacts = state.GetArtifacts(StageID)
	return result, nil
}
