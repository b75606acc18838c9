// Package detector wires the supervised pipeline: partition maps are turned
// into bipartite graphs, edges are sampled and described by topological
// features, a link-prediction classifier scores the test edges, and the
// per-community meta-features are ranked.
package detector

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-anomaly/pkg/bipartite"
	"github.com/dd0wney/cluso-anomaly/pkg/checkpoint"
	"github.com/dd0wney/cluso-anomaly/pkg/config"
	"github.com/dd0wney/cluso-anomaly/pkg/features"
	"github.com/dd0wney/cluso-anomaly/pkg/graph"
	"github.com/dd0wney/cluso-anomaly/pkg/linkpred"
	"github.com/dd0wney/cluso-anomaly/pkg/logging"
	"github.com/dd0wney/cluso-anomaly/pkg/metafeatures"
	"github.com/dd0wney/cluso-anomaly/pkg/metrics"
	"github.com/dd0wney/cluso-anomaly/pkg/ranking"
	"github.com/dd0wney/cluso-anomaly/pkg/sampling"
)

// Stage names, used in logs and metrics.
const (
	StageBuild      = "build_graph"
	StageSample     = "sampling"
	StageFeatures   = "features"
	StageCheckpoint = "checkpoint"
	StageFit        = "fit"
	StagePredict    = "predict"
	StageAggregate  = "meta_features"
	StageRank       = "rank"
)

var (
	// ErrNoCheckpoint is returned by DetectFromCheckpoint without a checkpoint.
	ErrNoCheckpoint = errors.New("no checkpoint configured")
	// ErrNoTrainingEdges is returned when sampling yields nothing to learn from.
	ErrNoTrainingEdges = errors.New("no training edges")
)

// Result is the outcome of one detection run.
type Result struct {
	RunID string
	// Ranking holds one ranking/score column pair per meta-feature.
	Ranking *ranking.Table
	Records map[string]metafeatures.Record
	// Validation holds the held-out classifier scores when HasValidation.
	Validation    linkpred.Scores
	HasValidation bool
	TrainRows     int
	TestRows      int
}

// Detector runs the supervised pipeline.
type Detector struct {
	labels     bipartite.Labels
	maxEdges   int
	meta       metafeatures.Config
	sampler    *sampling.Sampler
	extractor  *features.Extractor
	predictor  *linkpred.Predictor
	factory    linkpred.Factory
	checkpoint *checkpoint.Checkpoint
	logger     logging.Logger
	metrics    *metrics.Registry
}

// Option configures a Detector.
type Option func(*Detector)

// WithClassifier replaces the logistic regression reference model.
func WithClassifier(f linkpred.Factory) Option {
	return func(d *Detector) { d.factory = f }
}

// WithCheckpoint persists feature tables to c and enables
// DetectFromCheckpoint.
func WithCheckpoint(c *checkpoint.Checkpoint) Option {
	return func(d *Detector) { d.checkpoint = c }
}

// WithLogger sets the logger of the detector and its components.
func WithLogger(l logging.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// WithMetrics records pipeline metrics in r.
func WithMetrics(r *metrics.Registry) Option {
	return func(d *Detector) { d.metrics = r }
}

// New builds a detector from cfg.
func New(cfg *config.Config, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Detector{
		labels:   cfg.Partites,
		maxEdges: cfg.Sampling.MaxEdges,
		meta:     cfg.MetaFeatures,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.OrDefault(d.logger)
	if d.factory == nil {
		l2, iters := cfg.Classifier.L2, cfg.Classifier.MaxIterations
		d.factory = func() linkpred.Classifier { return linkpred.NewLogisticRegression(l2, iters) }
	}

	var sampleRng, splitRng *rand.Rand
	if seed := cfg.Sampling.Seed; seed != 0 {
		sampleRng = rand.New(rand.NewSource(seed))
		splitRng = rand.New(rand.NewSource(seed + 1))
	}

	samplerOpts := []sampling.Option{
		sampling.WithLogger(d.logger),
		sampling.WithMetrics(d.metrics),
		sampling.WithAttemptFactor(cfg.Sampling.AttemptFactor),
	}
	if cfg.Sampling.MaxAttempts > 0 {
		samplerOpts = append(samplerOpts, sampling.WithMaxAttempts(cfg.Sampling.MaxAttempts))
	}
	d.sampler = sampling.NewSampler(d.labels, sampleRng, samplerOpts...)

	d.extractor = features.NewExtractor(
		features.WithWorkers(cfg.Features.Workers),
		features.WithLogger(d.logger),
		features.WithMetrics(d.metrics))

	predictorOpts := []linkpred.Option{
		linkpred.WithValidationSize(cfg.Classifier.ValidationSize),
		linkpred.WithLogger(d.logger),
		linkpred.WithMetrics(d.metrics),
	}
	if splitRng != nil {
		predictorOpts = append(predictorOpts, linkpred.WithRand(splitRng))
	}
	d.predictor = linkpred.NewPredictor(d.factory, predictorOpts...)

	d.logger = d.logger.With(logging.Component("detector"))
	return d, nil
}

// Detect runs the full pipeline on a training and a test partition map.
// The training graph yields balanced positive and negative edges; every
// membership edge of the test graph is scored.
func (d *Detector) Detect(ctx context.Context, train, test bipartite.PartitionMap) (*Result, error) {
	runID := uuid.NewString()
	log := d.logger.With(logging.RunID(runID))
	log.Info("detection started",
		logging.Int("train_communities", len(train)),
		logging.Int("test_communities", len(test)))

	trainTable, testTable, err := d.features(ctx, log, train, test)
	if err != nil {
		return nil, err
	}
	if err := d.save(ctx, log, trainTable, testTable); err != nil {
		return nil, err
	}
	return d.rank(ctx, log, runID, trainTable, testTable)
}

// Features builds the train and test feature tables without fitting, and
// saves them when a checkpoint is configured.
func (d *Detector) Features(ctx context.Context, train, test bipartite.PartitionMap) (trainTable, testTable *features.Table, err error) {
	log := d.logger.With(logging.RunID(uuid.NewString()))
	if trainTable, testTable, err = d.features(ctx, log, train, test); err != nil {
		return nil, nil, err
	}
	if err := d.save(ctx, log, trainTable, testTable); err != nil {
		return nil, nil, err
	}
	return trainTable, testTable, nil
}

func (d *Detector) save(ctx context.Context, log logging.Logger, trainTable, testTable *features.Table) error {
	if d.checkpoint == nil {
		return nil
	}
	return d.stage(log, StageCheckpoint, func() error {
		return d.checkpoint.Save(ctx, trainTable, testTable)
	})
}

func (d *Detector) features(ctx context.Context, log logging.Logger, train, test bipartite.PartitionMap) (*features.Table, *features.Table, error) {
	var trainG, testG *graph.Graph
	err := d.stage(log, StageBuild, func() error {
		var err error
		if trainG, err = d.buildGraph("train", train); err != nil {
			return err
		}
		testG, err = d.buildGraph("test", test)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	var positive, negative, inference []graph.Edge
	err = d.stage(log, StageSample, func() error {
		var err error
		positive, negative, err = d.sampler.SampleTraining(trainG, d.maxEdges)
		if err != nil {
			if !errors.Is(err, sampling.ErrSamplingExhausted) || len(negative) == 0 {
				return err
			}
			log.Warn("training set unbalanced",
				logging.Int("positive", len(positive)),
				logging.Int("negative", len(negative)),
				logging.Error(err))
		}
		if len(positive) == 0 {
			return ErrNoTrainingEdges
		}
		inference, err = d.sampler.SampleInference(testG, d.maxEdges)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	var trainTable, testTable *features.Table
	err = d.stage(log, StageFeatures, func() error {
		var err error
		if trainTable, err = d.extractor.BuildTable(ctx, trainG, positive, negative); err != nil {
			return fmt.Errorf("train table: %w", err)
		}
		if testTable, err = d.extractor.BuildTable(ctx, testG, inference, nil); err != nil {
			return fmt.Errorf("test table: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return trainTable, testTable, nil
}

// DetectFromCheckpoint resumes from stored feature tables, skipping graph
// construction, sampling and extraction.
func (d *Detector) DetectFromCheckpoint(ctx context.Context) (*Result, error) {
	if d.checkpoint == nil {
		return nil, ErrNoCheckpoint
	}
	runID := uuid.NewString()
	log := d.logger.With(logging.RunID(runID))
	log.Info("detection resumed from checkpoint")

	var trainTable, testTable *features.Table
	err := d.stage(log, StageCheckpoint, func() error {
		var err error
		trainTable, testTable, err = d.checkpoint.Load(ctx)
		if err == nil && !trainTable.Labeled {
			err = fmt.Errorf("%s: %w", checkpoint.TrainFile, linkpred.ErrUnlabeled)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return d.rank(ctx, log, runID, trainTable, testTable)
}

// rank fits the classifier and turns test probabilities into ranked
// meta-feature columns.
func (d *Detector) rank(ctx context.Context, log logging.Logger, runID string, trainTable, testTable *features.Table) (*Result, error) {
	res := &Result{RunID: runID, TrainRows: trainTable.Len(), TestRows: testTable.Len()}

	if err := d.stage(log, StageFit, func() error {
		return d.predictor.Fit(ctx, trainTable)
	}); err != nil {
		return nil, err
	}
	res.Validation, res.HasValidation = d.predictor.ValidationScores()

	var probs map[graph.Edge]float64
	if err := d.stage(log, StagePredict, func() error {
		var err error
		probs, err = d.predictor.Probabilities(testTable)
		return err
	}); err != nil {
		return nil, err
	}

	if err := d.stage(log, StageAggregate, func() error {
		var err error
		res.Records, err = metafeatures.Aggregate(probs, d.meta)
		return err
	}); err != nil {
		return nil, err
	}

	if err := d.stage(log, StageRank, func() error {
		res.Ranking = &ranking.Table{}
		columns := metafeatures.Columns(res.Records)
		for _, name := range metafeatures.ColumnNames {
			res.Ranking.Add(ranking.RankMap(name, columns[name]))
		}
		return nil
	}); err != nil {
		return nil, err
	}

	log.Info("detection finished",
		logging.Int("communities", len(res.Records)),
		logging.Int("train_rows", res.TrainRows),
		logging.Int("test_rows", res.TestRows))
	return res, nil
}

func (d *Detector) buildGraph(name string, pm bipartite.PartitionMap) (*graph.Graph, error) {
	g, err := bipartite.Build(pm, d.labels, nil)
	if err != nil {
		return nil, fmt.Errorf("%s graph: %w", name, err)
	}
	props := bipartite.Describe(g, d.labels)
	d.metrics.RecordGraph(name, map[string]int{
		d.labels.Community: props.Communities,
		d.labels.Member:    props.Members,
	}, props.Edges)
	d.logger.Debug("bipartite graph built",
		logging.String("graph", name),
		logging.Int("communities", props.Communities),
		logging.Int("members", props.Members),
		logging.Int("edges", props.Edges),
		logging.Int("isolated_communities", props.IsolatedCommunities))
	return g, nil
}

// stage runs fn as a named pipeline stage, timing it in logs and metrics.
func (d *Detector) stage(log logging.Logger, name string, fn func() error) error {
	timer := logging.StartTimer(log, "stage "+name, logging.Stage(name))
	err := fn()
	d.metrics.RecordStage(name, timer.Elapsed(), err)
	if err != nil {
		timer.EndError(err)
		return fmt.Errorf("%s: %w", name, err)
	}
	timer.End()
	return nil
}
