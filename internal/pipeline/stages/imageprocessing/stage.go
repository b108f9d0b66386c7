// Package imageprocessing implements the image extraction stage: it reads
// raw per-page image blobs staged by upstream document conversion,
// classifies each as raster/svg/vector_graphic, decodes raster dimensions,
// and republishes the image into its final blob-store location.
package imageprocessing

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/krai/engine/internal/blobstore"
	"github.com/krai/engine/internal/models"
	"github.com/krai/engine/internal/pipeline/core"
	"github.com/krai/engine/internal/pipeline/shared"
)

// StageID is the fixed stage identifier.
const StageID = "image_processing"

// Stage extracts and classifies images found on each document page.
type Stage struct {
	shared.BaseStage
	blobStore *blobstore.Store
}

// New creates the image processing stage.
func New(deps *core.Dependencies) core.Stage {
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, "Image Processing"),
		blobStore: deps.BlobStore,
	}
}

func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()
	docID := state.Document.ID.String()

	for page := 1; page <= len(state.PageTexts); page++ {
		rawImages, err := s.stagedImagesForPage(docID, page)
		if err != nil {
			return nil, err
		}

		for i, raw := range rawImages {
			img, err := s.classifyAndPublish(docID, page, i, raw)
			if err != nil {
				state.AddError(fmt.Errorf("page %d image %d: %w", page, i, err))
				continue
			}
			state.Images = append(state.Images, img)

			artifact := core.NewArtifact(core.ArtifactTypeImage, core.ProcessingStageRaw, StageID).
				WithRecordCount(1).
				WithMetadata("page_number", page).
				WithMetadata("image_type", string(img.ImageType))
			state.AddArtifact(StageID, artifact)
		}
	}

	result.RecordsProcessed = len(state.Images)
	result.RecordsModified = len(state.Images)
	result.Message = fmt.Sprintf("processed %d images", len(state.Images))
	result.Artifacts = state.GetArtifacts(StageID)
	return result, nil
}

// stagedImagesForPage reads every raw image blob an upstream conversion
// step staged for a page. A page with no staged images (the common case
// for a text-only page) is not an error.
func (s *Stage) stagedImagesForPage(documentID string, page int) ([][]byte, error) {
	var raws [][]byte
	for i := 0; ; i++ {
		key := blobstore.DerivedImageKey(documentID, fmt.Sprintf("raw-%d", i), "bin", page)
		exists, err := s.blobStore.Exists(blobstore.BucketDocumentImages, key)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
		data, err := s.blobStore.Get(blobstore.BucketDocumentImages, key, blobstore.CodecNone)
		if err != nil {
			return nil, err
		}
		raws = append(raws, data)
	}
	return raws, nil
}

func (s *Stage) classifyAndPublish(documentID string, page, index int, raw []byte) (*models.Image, error) {
	imageType, ext := sniff(raw)

	var width, height *int
	if imageType == models.ImageTypeRaster {
		if cfg, _, err := decodeConfig(raw); err == nil {
			w, h := cfg.Width, cfg.Height
			width, height = &w, &h
		}
	}

	key := blobstore.DerivedImageKey(documentID, fmt.Sprintf("figure-%d", index), ext, page)
	if err := s.blobStore.Put(blobstore.BucketDocumentImages, key, raw, blobstore.CodecNone); err != nil {
		return nil, fmt.Errorf("publishing image: %w", err)
	}

	return &models.Image{
		PageNumber: page,
		ImageType:  imageType,
		BlobRef:    key,
		Width:      width,
		Height:     height,
	}, nil
}

// decodeConfig decodes raster dimensions using the stdlib image registry
// plus golang.org/x/image's bmp/tiff decoders, covering every raster
// format a scanned service manual commonly embeds.
func decodeConfig(raw []byte) (image.Config, string, error) {
	r := bytes.NewReader(raw)
	if cfg, format, err := image.DecodeConfig(r); err == nil {
		return cfg, format, nil
	}
	r.Seek(0, 0)
	if cfg, err := bmp.DecodeConfig(r); err == nil {
		return cfg, "bmp", nil
	}
	r.Seek(0, 0)
	if cfg, err := tiff.DecodeConfig(r); err == nil {
		return cfg, "tiff", nil
	}
	return image.Config{}, "", fmt.Errorf("unrecognized raster format")
}

// sniff classifies raw image bytes into KRAI's image type taxonomy and
// reports the file extension to publish it under.
func sniff(raw []byte) (models.ImageType, string) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("<svg")) || bytes.Contains(trimmed[:min(len(trimmed), 256)], []byte("<svg")) {
		return models.ImageTypeSVG, "svg"
	}
	if cfg, format, err := decodeConfig(raw); err == nil {
		_ = cfg
		return models.ImageTypeRaster, format
	}
	return models.ImageTypeVectorGraphic, "bin"
}
