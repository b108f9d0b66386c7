package textextraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/krai/engine/internal/blobstore"
	"github.com/krai/engine/internal/models"
	"github.com/krai/engine/internal/pipeline/core"
	"github.com/krai/engine/internal/storage"
)

func newTestStage(t *testing.T) (*Stage, *blobstore.Store) {
	t.Helper()
	sandbox, err := storage.NewSandbox(t.TempDir())
	require.NoError(t, err)
	store := blobstore.New(sandbox)
	deps := &core.Dependencies{BlobStore: store}
	return New(deps).(*Stage), store
}

func TestStage_ExecuteSplitsOnFormFeed(t *testing.T) {
	stage, store := newTestStage(t)

	doc := &models.Document{Filename: "manual.pdf", FileHash: blobstore.HashBytes([]byte("page one\fpage two\fpage three"))}
	key := blobstore.OriginalKey(doc.FileHash, doc.Filename)
	require.NoError(t, store.Put(blobstore.BucketDocuments, key, []byte("page one\fpage two\fpage three"), blobstore.CodecNone))

	state := core.NewState(doc)
	result, err := stage.Execute(context.Background(), state)
	require.NoError(t, err)

	require.Equal(t, 3, result.RecordsProcessed)
	require.Equal(t, "page one", state.PageTexts[1])
	require.Equal(t, "page two", state.PageTexts[2])
	require.Equal(t, "page three", state.PageTexts[3])
	require.NotNil(t, state.Document.PageCount)
	require.Equal(t, 3, *state.Document.PageCount)
}

func TestStage_ExecuteRequiresDocument(t *testing.T) {
	stage, _ := newTestStage(t)
	state := &core.State{PageTexts: make(map[int]string), Artifacts: make(map[string][]core.Artifact), Metadata: make(map[string]any)}

	_, err := stage.Execute(context.Background(), state)
	require.Error(t, err)
}

func TestStage_ExecuteRejectsEmptyBlob(t *testing.T) {
	stage, store := newTestStage(t)

	doc := &models.Document{Filename: "empty.pdf", FileHash: blobstore.HashBytes(nil)}
	key := blobstore.OriginalKey(doc.FileHash, doc.Filename)
	require.NoError(t, store.Put(blobstore.BucketDocuments, key, []byte{}, blobstore.CodecNone))

	state := core.NewState(doc)
	_, err := stage.Execute(context.Background(), state)
	require.Error(t, err)
}
