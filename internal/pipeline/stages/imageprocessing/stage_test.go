package imageprocessing

import (
	"bytes"
	"context"
	"image"
	"image/png"
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

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestStage_ExecuteClassifiesAndPublishesRasterImage(t *testing.T) {
	stage, store := newTestStage(t)

	doc := &models.Document{Filename: "manual.pdf", FileHash: "deadbeef"}
	doc.ID = models.NewULID()
	docID := doc.ID.String()

	raw := pngBytes(t, 10, 20)
	rawKey := blobstore.DerivedImageKey(docID, "raw-0", "bin", 1)
	require.NoError(t, store.Put(blobstore.BucketDocumentImages, rawKey, raw, blobstore.CodecNone))

	state := core.NewState(doc)
	state.PageTexts[1] = "some text"

	result, err := stage.Execute(context.Background(), state)
	require.NoError(t, err)

	require.Len(t, state.Images, 1)
	img := state.Images[0]
	require.Equal(t, models.ImageTypeRaster, img.ImageType)
	require.NotNil(t, img.Width)
	require.Equal(t, 10, *img.Width)
	require.NotNil(t, img.Height)
	require.Equal(t, 20, *img.Height)
	require.Equal(t, 1, result.RecordsProcessed)
}

func TestStage_ExecuteNoImagesOnPage(t *testing.T) {
	stage, _ := newTestStage(t)

	doc := &models.Document{Filename: "manual.pdf", FileHash: "deadbeef"}
	doc.ID = models.NewULID()
	state := core.NewState(doc)
	state.PageTexts[1] = "text only page"

	result, err := stage.Execute(context.Background(), state)
	require.NoError(t, err)
	require.Empty(t, state.Images)
	require.Equal(t, 0, result.RecordsProcessed)
}

func TestSniff_DetectsSVG(t *testing.T) {
	kind, ext := sniff([]byte("<svg xmlns='http://www.w3.org/2000/svg'></svg>"))
	require.Equal(t, models.ImageTypeSVG, kind)
	require.Equal(t, "svg", ext)
}
