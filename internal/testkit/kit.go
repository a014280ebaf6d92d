package testkit

import (
	"context"
	"path/filepath"

	"schoolinfra/adapters/excel"
	"schoolinfra/adapters/modelstore"
	"schoolinfra/domain/infra"
	"schoolinfra/domain/recommend"
	"schoolinfra/internal/analysis"
	"schoolinfra/internal/config"
	"schoolinfra/internal/training"
)

// TestKit is a data directory populated by running the real pipeline end to end:
// generated input, labeled training data, model artifacts and analysis results.
type TestKit struct {
	Config   *config.Config
	Input    *infra.Table
	Labeled  *infra.Table
	Results  *infra.Table
	Training *training.Result
}

// Config returns an application config rooted at dir with a small k range
func Config(dir string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "0", GinMode: "test", ResultsSource: config.ResultsSourceCSV},
		Paths: config.PathConfig{
			DataDir:    dir,
			ResultsCSV: filepath.Join(dir, "infrastructure_analysis_results.csv"),
			ModelPath:  filepath.Join(dir, "train_model.json"),
			MLBPath:    filepath.Join(dir, "train_mlb.json"),
			ReportPath: filepath.Join(dir, "training_report.md"),
		},
		Database: config.DatabaseConfig{Driver: "sqlite"},
		Training: config.TrainingConfig{KMin: 3, KMax: 5, TestSize: 0.2, Seed: 42, Smoothing: 1},
		Log:      config.LogConfig{Level: "error", Format: "console"},
	}
}

// NewTestKit writes a complete data directory under dir
func NewTestKit(ctx context.Context, dir string, gen InfraGeneratorConfig) (*TestKit, error) {
	cfg := Config(dir)
	kit := &TestKit{Config: cfg}

	kit.Input = NewInfraDataGenerator(gen).Generate()
	kit.Labeled = analysis.LabelDataset(kit.Input, recommend.NewLabeler(nil))

	var err error
	if kit.Training, err = training.Train(ctx, kit.Labeled, cfg.Training); err != nil {
		return nil, err
	}
	if err := training.Save(ctx, modelstore.NewFileStore(), cfg.Paths.ModelPath, cfg.Paths.MLBPath, kit.Training); err != nil {
		return nil, err
	}
	if err := training.WriteReport(cfg.Paths.ReportPath, kit.Training); err != nil {
		return nil, err
	}

	if _, kit.Results, err = analysis.Analyze(ctx, kit.Input, kit.Training.Model, kit.Training.Binarizer); err != nil {
		return nil, err
	}
	if err := excel.NewDataWriter(excel.DefaultConfig()).WriteTable(ctx, cfg.Paths.ResultsCSV, kit.Results); err != nil {
		return nil, err
	}
	return kit, nil
}
