// Package chunkprep implements the chunk_prep stage: splitting extracted
// page text into ordered, overlapping chunks with semantic boundaries,
// each carrying its section heading path and linked-list pointers.
package chunkprep

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/krai/engine/internal/models"
	"github.com/krai/engine/internal/pipeline/core"
	"github.com/krai/engine/internal/pipeline/shared"
)

// StageID is the fixed stage identifier.
const StageID = "chunk_prep"

const targetChunkChars = 2000
const overlapChars = 200

var headingPattern = regexp.MustCompile(`(?im)^(chapter|section|part)\s+\d+[:.]?\s*.+$`)

// Stage splits page text into ordered, overlapping chunks.
type Stage struct {
	shared.BaseStage
	tokenizer *tiktoken.Tiktoken
}

// New creates the chunk preparation stage. The tokenizer is used only to
// report an approximate token count per chunk artifact; chunk boundaries
// themselves are sized in characters per the extractor contract.
func New(deps *core.Dependencies) core.Stage {
	enc, _ := tiktoken.GetEncoding("cl100k_base")
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, "Chunk Preparation"),
		tokenizer: enc,
	}
}

func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()

	pageNumbers := make([]int, 0, len(state.PageTexts))
	for p := range state.PageTexts {
		pageNumbers = append(pageNumbers, p)
	}
	sort.Ints(pageNumbers)

	builder := newChunkBuilder(state.Document.ID)
	for _, page := range pageNumbers {
		builder.addPage(page, state.PageTexts[page])
	}
	chunks := builder.finish()

	linkChunks(chunks)

	for _, c := range chunks {
		state.Chunks = append(state.Chunks, c)

		artifact := core.NewArtifact(core.ArtifactTypeChunk, core.ProcessingStageEnriched, StageID).
			WithRecordCount(1).
			WithMetadata("ordinal", c.Ordinal).
			WithMetadata("page_number", c.PageNumber)
		if s.tokenizer != nil {
			artifact = artifact.WithMetadata("token_count", len(s.tokenizer.Encode(c.Text, nil, nil)))
		}
		state.AddArtifact(StageID, artifact)
	}

	result.RecordsProcessed = len(pageNumbers)
	result.RecordsModified = len(chunks)
	result.Artifacts = state.GetArtifacts(StageID)
	return result, nil
}

// linkChunks assigns stable IDs and wires the doubly-linked reading-order
// pointers before the chunks are handed to the repository layer.
func linkChunks(chunks []*models.Chunk) {
	for _, c := range chunks {
		if c.ID.IsZero() {
			c.ID = models.NewULID()
		}
	}
	for i, c := range chunks {
		if i > 0 {
			prev := chunks[i-1].ID
			c.PreviousChunkID = &prev
		}
		if i < len(chunks)-1 {
			next := chunks[i+1].ID
			c.NextChunkID = &next
		}
	}
}

// chunkBuilder accumulates paragraphs across pages into target-sized
// chunks, preferring to break at heading boundaries and otherwise at
// paragraph boundaries, carrying a trailing overlap into the next chunk.
type chunkBuilder struct {
	documentID   models.ULID
	ordinal      int
	headingStack []string

	pending      strings.Builder
	pendingPage  int
	pendingLevel int
	chunks       []*models.Chunk
}

func newChunkBuilder(documentID models.ULID) *chunkBuilder {
	return &chunkBuilder{documentID: documentID}
}

func (b *chunkBuilder) addPage(page int, text string) {
	paragraphs := strings.Split(text, "\n\n")
	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if headingPattern.MatchString(para) {
			b.flush()
			b.headingStack = append(b.headingStack[:0:0], para)
			b.pendingLevel = len(b.headingStack)
			continue
		}

		if b.pending.Len() == 0 {
			b.pendingPage = page
		}

		if b.pending.Len() > 0 && b.pending.Len()+len(para) > targetChunkChars {
			overlap := b.takeOverlap()
			b.flush()
			b.pending.WriteString(overlap)
			b.pendingPage = page
		}

		if b.pending.Len() > 0 {
			b.pending.WriteString("\n\n")
		}
		b.pending.WriteString(para)
	}
}

// takeOverlap returns up to overlapChars of text from the end of the
// pending buffer to seed the next chunk, preserving local context across
// the boundary.
func (b *chunkBuilder) takeOverlap() string {
	text := b.pending.String()
	if len(text) <= overlapChars {
		return text
	}
	return text[len(text)-overlapChars:]
}

func (b *chunkBuilder) flush() {
	if b.pending.Len() == 0 {
		return
	}
	c := &models.Chunk{
		DocumentID:       b.documentID,
		Ordinal:          b.ordinal,
		PageNumber:       b.pendingPage,
		SectionHierarchy: models.StringSlice(append([]string(nil), b.headingStack...)),
		SectionLevel:     b.pendingLevel,
		Text:             b.pending.String(),
	}
	b.chunks = append(b.chunks, c)
	b.ordinal++
	b.pending.Reset()
}

func (b *chunkBuilder) finish() []*models.Chunk {
	b.flush()
	return b.chunks
}
