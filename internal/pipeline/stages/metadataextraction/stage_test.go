package metadataextraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/krai/engine/internal/models"
	"github.com/krai/engine/internal/pipeline/core"
)

type fakeManufacturerRepo struct {
	byName map[string]*models.Manufacturer
}

func newFakeManufacturerRepo() *fakeManufacturerRepo {
	return &fakeManufacturerRepo{byName: make(map[string]*models.Manufacturer)}
}

func (f *fakeManufacturerRepo) Get(ctx context.Context, id models.ULID) (*models.Manufacturer, error) {
	for _, m := range f.byName {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

func (f *fakeManufacturerRepo) GetByName(ctx context.Context, name string) (*models.Manufacturer, error) {
	return f.byName[name], nil
}

func (f *fakeManufacturerRepo) GetOrCreate(ctx context.Context, name, patternKey string) (*models.Manufacturer, error) {
	if m, ok := f.byName[name]; ok {
		return m, nil
	}
	m := &models.Manufacturer{Name: name, PatternKey: patternKey}
	m.ID = models.NewULID()
	f.byName[name] = m
	return m, nil
}

func (f *fakeManufacturerRepo) List(ctx context.Context) ([]*models.Manufacturer, error) {
	var out []*models.Manufacturer
	for _, m := range f.byName {
		out = append(out, m)
	}
	return out, nil
}

type fakeProductRepo struct {
	byModel map[string]*models.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{byModel: make(map[string]*models.Product)}
}

func (f *fakeProductRepo) Get(ctx context.Context, id models.ULID) (*models.Product, error) {
	for _, p := range f.byModel {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeProductRepo) GetByModelNumber(ctx context.Context, manufacturerID models.ULID, modelNumber string) (*models.Product, error) {
	p, ok := f.byModel[modelNumber]
	if !ok {
		return nil, errNotFound{}
	}
	return p, nil
}

func (f *fakeProductRepo) Create(ctx context.Context, p *models.Product) error {
	p.ID = models.NewULID()
	f.byModel[p.ModelNumber] = p
	return nil
}

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }

func TestStage_ExecuteResolvesManufacturerAndModel(t *testing.T) {
	mfrRepo := newFakeManufacturerRepo()
	productRepo := newFakeProductRepo()
	stage := &Stage{manufacturerRepo: mfrRepo, productRepo: productRepo}

	doc := &models.Document{Filename: "manual.pdf", FileHash: "abc"}
	state := core.NewState(doc)
	state.PageTexts[1] = "Konica Minolta Service Manual for model AB-1234"

	result, err := stage.Execute(context.Background(), state)
	require.NoError(t, err)
	require.Equal(t, 1, result.RecordsModified)

	require.NotNil(t, state.ManufacturerID)
	resolved, ok := state.GetMetadata("manufacturer_resolved")
	require.True(t, ok)
	require.Equal(t, true, resolved)

	key, ok := state.GetMetadata("manufacturer_pattern_key")
	require.True(t, ok)
	require.Equal(t, "konica-minolta", key)
}

func TestStage_ExecuteNoManufacturerFound(t *testing.T) {
	mfrRepo := newFakeManufacturerRepo()
	productRepo := newFakeProductRepo()
	stage := &Stage{manufacturerRepo: mfrRepo, productRepo: productRepo}

	doc := &models.Document{Filename: "manual.pdf", FileHash: "abc"}
	state := core.NewState(doc)
	state.PageTexts[1] = "no recognizable brand mentioned anywhere in this text"

	_, err := stage.Execute(context.Background(), state)
	require.NoError(t, err)

	resolved, ok := state.GetMetadata("manufacturer_resolved")
	require.True(t, ok)
	require.Equal(t, false, resolved)
	require.Nil(t, state.ManufacturerID)
}
