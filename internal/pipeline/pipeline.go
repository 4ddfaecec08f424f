// Package pipeline provides the orchestrator for the five-stage export
// job: extract from the relational source, stage into the document store,
// re-extract, serialize to CSV, and publish to blob storage.
//
// Control flows strictly forward through a sequential state machine.
// Success of one stage advances to the next; failure of any stage,
// including the serializer's no-data refusal, moves directly to the
// failed terminal state and no later stage executes. There are no
// retries: one invocation is one attempt.
package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/blobcast/pkg/config"
	"github.com/ajitpratap0/blobcast/pkg/export"
	"github.com/ajitpratap0/blobcast/pkg/recordset"
	"github.com/ajitpratap0/blobcast/pkg/xerrors"
)

// State identifies a stage of the run, or a terminal outcome.
type State string

const (
	StateExtract   State = "extract"
	StateStage     State = "stage"
	StateUnstage   State = "unstage"
	StateSerialize State = "serialize"
	StatePublish   State = "publish"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Extractor reads the bounded, ordered slice from the relational source.
type Extractor interface {
	Extract(ctx context.Context) (*recordset.RecordSet, error)
}

// Stager replaces and reads back the staging collection.
type Stager interface {
	Stage(ctx context.Context, rs *recordset.RecordSet) error
	Unstage(ctx context.Context) (*recordset.RecordSet, error)
}

// Serializer converts a RecordSet into the export artifact.
type Serializer interface {
	Marshal(rs *recordset.RecordSet) (*export.Artifact, error)
}

// Publisher uploads the artifact and returns its retrieval URL.
type Publisher interface {
	Publish(ctx context.Context, artifact *export.Artifact) (string, error)
}

// Result is the terminal report of one run.
type Result struct {
	RunID string
	State State

	// Skipped is set when the run ended because re-extraction produced
	// no rows: "export skipped, no data" rather than a processing error.
	Skipped bool

	// Extracted counts rows read from the relational source; Exported
	// counts rows read back from staging and serialized.
	Extracted int
	Exported  int

	// BlobURL is the artifact's retrieval URL, set only on success.
	BlobURL string

	Duration time.Duration
}

// Pipeline drives one run of the export job.
type Pipeline struct {
	cfg        *config.Config
	extractor  Extractor
	stager     Stager
	serializer Serializer
	publisher  Publisher
	logger     *zap.Logger
}

// New creates a Pipeline from its stage implementations.
func New(cfg *config.Config, extractor Extractor, stager Stager, serializer Serializer, publisher Publisher, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		extractor:  extractor,
		stager:     stager,
		serializer: serializer,
		publisher:  publisher,
		logger:     logger.With(zap.String("component", "pipeline")),
	}
}

// Run executes the five stages in order and returns the terminal result.
// The returned error is nil only when the run reached the succeeded
// state; the no-data skip surfaces as an error satisfying
// xerrors.IsNoData alongside Result.Skipped.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		RunID: uuid.NewString(),
		State: StateExtract,
	}
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
	}()

	log := p.logger.With(zap.String("run_id", result.RunID))
	log.Info("export run starting",
		zap.String("table", p.cfg.Postgres.Table),
		zap.Int("limit", p.cfg.Postgres.Limit),
		zap.Time("started_at", start.UTC()))

	fail := func(err error) (*Result, error) {
		stage := result.State
		result.State = StateFailed
		log.Error("export run failed",
			zap.String("stage", string(stage)),
			zap.Error(err))
		return result, err
	}

	source, err := p.extractor.Extract(ctx)
	if err != nil {
		return fail(err)
	}
	result.Extracted = source.Len()
	log.Info("extract complete", zap.Int("rows", result.Extracted))

	result.State = StateStage
	if err := p.stager.Stage(ctx, source); err != nil {
		return fail(err)
	}
	log.Info("stage complete")

	result.State = StateUnstage
	staged, err := p.stager.Unstage(ctx)
	if err != nil {
		return fail(err)
	}
	result.Exported = staged.Len()
	log.Info("unstage complete", zap.Int("rows", result.Exported))

	result.State = StateSerialize
	artifact, err := p.serializer.Marshal(staged)
	if err != nil {
		if xerrors.IsNoData(err) {
			result.State = StateFailed
			result.Skipped = true
			log.Warn("export skipped, no data")
			return result, err
		}
		return fail(err)
	}
	log.Info("serialize complete", zap.Int("bytes", len(artifact.Data)))

	// Materialize the local intermediate copy; it is removed after the
	// publish attempt whether or not publish succeeds.
	localPath := p.cfg.Export.LocalPath
	if localPath != "" {
		if err := artifact.WriteFile(localPath); err != nil {
			return fail(err)
		}
		defer p.cleanupLocal(localPath, log)
	}

	result.State = StatePublish
	url, err := p.publisher.Publish(ctx, artifact)
	if err != nil {
		return fail(err)
	}

	result.State = StateSucceeded
	result.BlobURL = url
	log.Info("export run succeeded",
		zap.String("blob_url", url),
		zap.Int("rows", result.Exported),
		zap.Duration("duration", time.Since(start)))

	return result, nil
}

// cleanupLocal removes the intermediate artifact file. Removal is
// best-effort; a failure here never masks the run's primary outcome.
func (p *Pipeline) cleanupLocal(path string, log *zap.Logger) {
	if err := os.Remove(path); err != nil {
		log.Warn("failed to remove local artifact", zap.String("path", path), zap.Error(err))
		return
	}
	log.Info("local artifact removed", zap.String("path", path))
}
