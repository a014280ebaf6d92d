package modelstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolinfra/internal/errors"
	"schoolinfra/internal/mlknn"
)

func fittedModel(t *testing.T) (*mlknn.Model, *mlknn.Binarizer) {
	t.Helper()
	x, err := mlknn.FromRows([][]float64{{0}, {1}, {10}, {11}})
	require.NoError(t, err)
	b := mlknn.NewBinarizer()
	y := b.FitTransform([][]string{{"low"}, {"low"}, {"high"}, {"high"}})

	clf := mlknn.NewClassifier(2, 1)
	require.NoError(t, clf.Fit(x, y))
	m, err := mlknn.NewModel(clf, []string{"count"}, b)
	require.NoError(t, err)
	return m, b
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore()
	model, binarizer := fittedModel(t)

	modelPath := filepath.Join(dir, "models", "train_model.json")
	mlbPath := filepath.Join(dir, "models", "train_mlb.json")
	require.NoError(t, store.SaveModel(ctx, modelPath, model))
	require.NoError(t, store.SaveBinarizer(ctx, mlbPath, binarizer))

	loaded, err := store.LoadModel(ctx, modelPath)
	require.NoError(t, err)
	loadedMLB, err := store.LoadBinarizer(ctx, mlbPath)
	require.NoError(t, err)

	assert.Equal(t, model.ID, loaded.ID)
	assert.Equal(t, []string{"high", "low"}, loadedMLB.Classes)
	require.NoError(t, loaded.Validate(loadedMLB))

	pred, err := loaded.PredictRow([]float64{10.5})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"high"}}, loadedMLB.InverseTransform([][]int{pred}))

	entries, err := os.ReadDir(filepath.Join(dir, "models"))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestLoadMissingArtifact(t *testing.T) {
	store := NewFileStore()
	_, err := store.LoadModel(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeArtifactMissing, errors.GetCode(err))

	_, err = store.LoadBinarizer(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, errors.CodeArtifactMissing, errors.GetCode(err))
}

func TestLoadCorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore().LoadModel(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, errors.CodeModelError, errors.GetCode(err))
}

func TestLoadModelWithoutClassifier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"x","k":5}`), 0o644))

	_, err := NewFileStore().LoadModel(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, errors.CodeModelError, errors.GetCode(err))
}
