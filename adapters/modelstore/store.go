package modelstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"schoolinfra/internal/errors"
	"schoolinfra/internal/mlknn"
	"schoolinfra/ports"
)

// FileStore keeps model artifacts as JSON documents on local disk
type FileStore struct{}

// NewFileStore creates a file-backed model store
func NewFileStore() ports.ModelStore {
	return &FileStore{}
}

// SaveModel writes the fitted model and its metadata
func (s *FileStore) SaveModel(ctx context.Context, path string, model *mlknn.Model) error {
	if err := writeJSON(ctx, path, model); err != nil {
		return errors.Wrapf(err, "failed to save model to %s", path)
	}
	zap.L().Info("model saved",
		zap.String("path", path),
		zap.String("model_id", model.ID.String()),
		zap.Int("k", model.K))
	return nil
}

// LoadModel reads a model written by SaveModel
func (s *FileStore) LoadModel(ctx context.Context, path string) (*mlknn.Model, error) {
	var model mlknn.Model
	if err := readJSON(ctx, path, &model); err != nil {
		return nil, err
	}
	if model.Classifier == nil || !model.Classifier.Fitted() {
		return nil, errors.ModelError("model artifact has no fitted classifier: " + path)
	}
	return &model, nil
}

// SaveBinarizer writes the label vocabulary
func (s *FileStore) SaveBinarizer(ctx context.Context, path string, binarizer *mlknn.Binarizer) error {
	if err := writeJSON(ctx, path, binarizer); err != nil {
		return errors.Wrapf(err, "failed to save binarizer to %s", path)
	}
	zap.L().Info("binarizer saved", zap.String("path", path), zap.Int("classes", binarizer.NumClasses()))
	return nil
}

// LoadBinarizer reads a binarizer written by SaveBinarizer
func (s *FileStore) LoadBinarizer(ctx context.Context, path string) (*mlknn.Binarizer, error) {
	var binarizer mlknn.Binarizer
	if err := readJSON(ctx, path, &binarizer); err != nil {
		return nil, err
	}
	return &binarizer, nil
}

// writeJSON writes to a sibling temp file first so readers never see a partial artifact
func writeJSON(ctx context.Context, path string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readJSON(ctx context.Context, path string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return errors.ArtifactMissing(path)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.WithCode(errors.CodeModelError, errors.Wrapf(err, "failed to decode %s", path))
	}
	return nil
}
