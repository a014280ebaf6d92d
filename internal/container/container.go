package container

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"schoolinfra/adapters/excel"
	"schoolinfra/adapters/modelstore"
	"schoolinfra/adapters/sqlstore"
	"schoolinfra/domain/core"
	"schoolinfra/domain/infra"
	"schoolinfra/domain/recommend"
	"schoolinfra/internal/config"
	"schoolinfra/internal/errors"
	"schoolinfra/internal/migration"
	"schoolinfra/internal/mlknn"
	"schoolinfra/ports"
)

// Data is the read-only state the web server answers from
type Data struct {
	Results   *infra.Table
	Run       *ports.ResultRun // set when results come from the database
	Model     *mlknn.Model
	Binarizer *mlknn.Binarizer
	LoadedAt  core.Timestamp
}

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB *sqlx.DB

	// Adapters
	Reader     ports.DatasetReader
	Writer     ports.TableWriter
	ModelStore ports.ModelStore
	ResultRepo ports.ResultRepository

	Labeler *recommend.Labeler

	mu   sync.Mutex
	data *Data
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	rules, err := recommend.LoadRules(cfg.Paths.RulesFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load recommendation rules")
	}

	c := &Container{
		Config:     cfg,
		Reader:     excel.NewDataReader(excel.DefaultConfig()),
		Writer:     excel.NewDataWriter(excel.DefaultConfig()),
		ModelStore: modelstore.NewFileStore(),
		Labeler:    recommend.NewLabeler(rules),
	}
	return c, nil
}

// InitWithDatabase opens the configured database, migrates it and wires the result repository
func (c *Container) InitWithDatabase(ctx context.Context) error {
	if c.Config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	db, err := sqlstore.Open(ctx, c.Config.Database.Driver, c.Config.Database.URL)
	if err != nil {
		return err
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "database migration failed"))
	}

	c.DB = db
	c.ResultRepo = sqlstore.NewResultRepository(db)
	zap.L().Info("container initialized with database", zap.String("driver", c.Config.Database.Driver))
	return nil
}

// Data returns the loaded server state, loading it on first use.
// Concurrent callers wait for a single load; a failed load is retried by the next call.
func (c *Container) Data(ctx context.Context) (*Data, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.data != nil {
		return c.data, nil
	}
	data, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	c.data = data
	return data, nil
}

// Loaded reports whether state has been loaded
func (c *Container) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data != nil
}

// Lookup returns the analysis row for a location and category.
// Results served from the database are queried by run; otherwise the loaded table is scanned.
func (c *Container) Lookup(ctx context.Context, location, category string) (infra.Record, bool, error) {
	data, err := c.Data(ctx)
	if err != nil {
		return infra.Record{}, false, err
	}
	if data.Run == nil || c.ResultRepo == nil {
		rec, ok := data.Results.Find(location, category)
		return rec, ok, nil
	}

	res, err := c.ResultRepo.FindResult(ctx, data.Run.ID, location, category)
	if core.IsNotFoundError(err) {
		return infra.Record{}, false, nil
	}
	if err != nil {
		return infra.Record{}, false, errors.Wrap(err, "failed to look up result")
	}
	return res.Record, true, nil
}

// Reset drops the loaded state so the next request reloads from disk
func (c *Container) Reset() {
	c.mu.Lock()
	c.data = nil
	c.mu.Unlock()
}

func (c *Container) load(ctx context.Context) (*Data, error) {
	paths := c.Config.Paths
	data := &Data{LoadedAt: core.Now()}

	var err error
	if c.Config.Server.ResultsSource == config.ResultsSourceDB {
		if c.ResultRepo == nil {
			return nil, errors.ConfigInvalid("results source is db but no database is configured")
		}
		data.Results, data.Run, err = c.ResultRepo.LatestTable(ctx)
	} else {
		data.Results, err = c.Reader.ReadTable(ctx, paths.ResultsCSV)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load analysis results")
	}

	if data.Model, err = c.ModelStore.LoadModel(ctx, paths.ModelPath); err != nil {
		return nil, errors.Wrap(err, "failed to load model")
	}
	if data.Binarizer, err = c.ModelStore.LoadBinarizer(ctx, paths.MLBPath); err != nil {
		return nil, errors.Wrap(err, "failed to load label binarizer")
	}
	if err := data.Model.Validate(data.Binarizer); err != nil {
		return nil, errors.WithCode(errors.CodeModelError, errors.Wrap(err, "model does not match binarizer"))
	}

	zap.L().Info("server data loaded",
		zap.Strings("columns", data.Results.Headers),
		zap.Int("rows", len(data.Results.Records)),
		zap.String("model_id", data.Model.ID.String()),
		zap.Int("classes", data.Binarizer.NumClasses()))
	return data, nil
}

// Shutdown releases resources held by the container
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		zap.L().Info("closing database connection")
		return c.DB.Close()
	}
	return nil
}
