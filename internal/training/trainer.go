package training

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"schoolinfra/domain/core"
	"schoolinfra/domain/infra"
	"schoolinfra/internal/analysis"
	"schoolinfra/internal/config"
	"schoolinfra/internal/errors"
	"schoolinfra/internal/mlknn"
	"schoolinfra/ports"
)

// Candidate is the held-out score of one neighbour count
type Candidate struct {
	K        int     `json:"k"`
	Accuracy float64 `json:"accuracy"`
	Skipped  bool    `json:"skipped,omitempty"`
}

// Result is the outcome of model selection and the final fit
type Result struct {
	Model        *mlknn.Model
	Binarizer    *mlknn.Binarizer
	Candidates   []Candidate
	BestK        int
	BestAccuracy float64
	// Evaluation scores the best candidate on the test split
	Evaluation *mlknn.Report
	TrainRows  int
	TestRows   int
	Elapsed    time.Duration
}

type candidateRun struct {
	Candidate
	pred [][]int
}

// Train picks k by subset accuracy on a seeded split, then refits the best k
// on every labeled row. Ties go to the larger k.
func Train(ctx context.Context, table *infra.Table, cfg config.TrainingConfig) (*Result, error) {
	start := time.Now()
	if cfg.KMin < 1 || cfg.KMax < cfg.KMin {
		return nil, errors.ValidationError(fmt.Sprintf("invalid k range [%d,%d]", cfg.KMin, cfg.KMax))
	}
	x, labels, err := analysis.TrainingData(table)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare training data")
	}
	n, _ := x.Dims()

	binarizer := mlknn.NewBinarizer()
	y := binarizer.FitTransform(labels)
	if binarizer.NumClasses() == 0 {
		return nil, errors.ValidationError("labeled dataset has no recommendations")
	}

	trainIdx, testIdx, err := mlknn.TrainTestSplit(n, cfg.TestSize, cfg.Seed)
	if err != nil {
		return nil, errors.WithCode(errors.CodeValidationError, errors.Wrap(err, "failed to split dataset"))
	}
	xTrain, yTrain := mlknn.SelectRows(x, trainIdx), mlknn.SelectLabels(y, trainIdx)
	xTest, yTest := mlknn.SelectRows(x, testIdx), mlknn.SelectLabels(y, testIdx)

	zap.L().Info("model selection started",
		zap.Int("rows", n),
		zap.Int("train_rows", len(trainIdx)),
		zap.Int("test_rows", len(testIdx)),
		zap.Int("classes", binarizer.NumClasses()),
		zap.Int("k_min", cfg.KMin),
		zap.Int("k_max", cfg.KMax))

	runs := make([]candidateRun, cfg.KMax-cfg.KMin+1)
	g, gctx := errgroup.WithContext(ctx)
	for i := range runs {
		k := cfg.KMin + i
		runs[i].K = k
		if k > len(trainIdx) {
			runs[i].Skipped = true
			zap.L().Warn("skipping k larger than training split", zap.Int("k", k), zap.Int("train_rows", len(trainIdx)))
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			clf := mlknn.NewClassifier(k, cfg.Smoothing)
			if err := clf.Fit(xTrain, yTrain); err != nil {
				return fmt.Errorf("k=%d: %w", k, err)
			}
			pred, err := clf.Predict(xTest)
			if err != nil {
				return fmt.Errorf("k=%d: %w", k, err)
			}
			acc, err := mlknn.SubsetAccuracy(yTest, pred)
			if err != nil {
				return fmt.Errorf("k=%d: %w", k, err)
			}
			runs[i].Accuracy = acc
			runs[i].pred = pred
			zap.L().Info("candidate scored", zap.Int("k", k), zap.Float64("accuracy", acc))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.WithCode(errors.CodeModelError, errors.Wrap(err, "candidate training failed"))
	}

	best := -1
	for i, r := range runs {
		if r.Skipped {
			continue
		}
		if best < 0 || r.Accuracy >= runs[best].Accuracy {
			best = i
		}
	}
	if best < 0 {
		return nil, errors.WithCode(errors.CodeValidationError,
			fmt.Errorf("%w: no k in [%d,%d] fits %d training rows", core.ErrInsufficientData, cfg.KMin, cfg.KMax, len(trainIdx)))
	}

	evaluation, err := mlknn.ClassificationReport(yTest, runs[best].pred, binarizer.Classes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to evaluate best candidate")
	}

	final := mlknn.NewClassifier(runs[best].K, cfg.Smoothing)
	if err := final.Fit(x, y); err != nil {
		return nil, errors.WithCode(errors.CodeModelError, errors.Wrap(err, "final fit failed"))
	}
	model, err := mlknn.NewModel(final, infra.FeatureNames(), binarizer)
	if err != nil {
		return nil, errors.WithCode(errors.CodeModelError, errors.Wrap(err, "failed to build model"))
	}
	model.TestAccuracy = runs[best].Accuracy
	model.Fingerprint = fingerprint(table)

	result := &Result{
		Model:        model,
		Binarizer:    binarizer,
		BestK:        runs[best].K,
		BestAccuracy: runs[best].Accuracy,
		Evaluation:   evaluation,
		TrainRows:    len(trainIdx),
		TestRows:     len(testIdx),
		Elapsed:      time.Since(start),
	}
	for _, r := range runs {
		result.Candidates = append(result.Candidates, r.Candidate)
	}

	zap.L().Info("model selection finished",
		zap.Int("best_k", result.BestK),
		zap.Float64("accuracy", result.BestAccuracy),
		zap.String("model_id", model.ID.String()),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

// Save writes the model and binarizer through the store
func Save(ctx context.Context, store ports.ModelStore, modelPath, mlbPath string, result *Result) error {
	if err := store.SaveModel(ctx, modelPath, result.Model); err != nil {
		return err
	}
	return store.SaveBinarizer(ctx, mlbPath, result.Binarizer)
}

func fingerprint(table *infra.Table) core.DatasetFingerprint {
	rows := make([][]string, len(table.Records))
	for i, rec := range table.Records {
		row := make([]string, len(table.Headers))
		for j, h := range table.Headers {
			row[j] = rec.Value(h)
		}
		rows[i] = row
	}
	return core.ComputeDatasetFingerprint(table.Headers, rows)
}
