package ports

import (
	"context"

	"schoolinfra/internal/mlknn"
)

// ModelStore saves and loads the two trained artifacts: the classifier and
// the label binarizer that decodes its output
type ModelStore interface {
	SaveModel(ctx context.Context, path string, model *mlknn.Model) error
	LoadModel(ctx context.Context, path string) (*mlknn.Model, error)
	SaveBinarizer(ctx context.Context, path string, binarizer *mlknn.Binarizer) error
	LoadBinarizer(ctx context.Context, path string) (*mlknn.Binarizer, error)
}
