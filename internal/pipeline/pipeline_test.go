package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/blobcast/pkg/config"
	"github.com/ajitpratap0/blobcast/pkg/export"
	"github.com/ajitpratap0/blobcast/pkg/recordset"
	"github.com/ajitpratap0/blobcast/pkg/testutil"
	"github.com/ajitpratap0/blobcast/pkg/xerrors"
)

type fakeExtractor struct {
	rs     *recordset.RecordSet
	err    error
	called bool
}

func (f *fakeExtractor) Extract(ctx context.Context) (*recordset.RecordSet, error) {
	f.called = true
	return f.rs, f.err
}

type fakeStager struct {
	staged      *recordset.RecordSet
	stageErr    error
	unstageErr  error
	syncedAt    time.Time
	stageCalled bool
}

func (f *fakeStager) Stage(ctx context.Context, rs *recordset.RecordSet) error {
	f.stageCalled = true
	if f.stageErr != nil {
		return f.stageErr
	}
	// Mirror the real stager: replace contents, stamp synced_at.
	staged := recordset.New()
	for _, r := range rs.Rows() {
		staged.Append(recordset.NormalizeRecord(r).Set("synced_at", f.syncedAt))
	}
	f.staged = staged
	return nil
}

func (f *fakeStager) Unstage(ctx context.Context) (*recordset.RecordSet, error) {
	if f.unstageErr != nil {
		return nil, f.unstageErr
	}
	if f.staged == nil {
		return recordset.New(), nil
	}
	return f.staged, nil
}

type fakePublisher struct {
	url    string
	err    error
	called bool
	data   []byte
}

func (f *fakePublisher) Publish(ctx context.Context, artifact *export.Artifact) (string, error) {
	f.called = true
	f.data = artifact.Data
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.New()
	cfg.Export.LocalPath = filepath.Join(t.TempDir(), "data_export.csv")
	return cfg
}

func sourceRecords() *recordset.RecordSet {
	rs := recordset.New()
	rs.Append(recordset.Record{
		{Name: "id", Value: 1},
		{Name: "name", Value: "A"},
		{Name: "signup", Value: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
	})
	rs.Append(recordset.Record{
		{Name: "id", Value: 2},
		{Name: "name", Value: "B"},
		{Name: "signup", Value: nil},
	})
	rs.Append(recordset.Record{
		{Name: "id", Value: 3},
		{Name: "name", Value: "C"},
		{Name: "signup", Value: time.Date(2023, 2, 15, 0, 0, 0, 0, time.UTC)},
	})
	return rs
}

func newTestPipeline(t *testing.T, cfg *config.Config, e *fakeExtractor, s *fakeStager, p *fakePublisher) *Pipeline {
	logger := testutil.TestLogger(t)
	return New(cfg, e, s, export.NewWriter(cfg.Export.BlobName, logger), p, logger)
}

func TestRunSuccess(t *testing.T) {
	cfg := testConfig(t)
	syncedAt := time.Date(2023, 3, 10, 8, 45, 30, 0, time.UTC)
	extractor := &fakeExtractor{rs: sourceRecords()}
	stager := &fakeStager{syncedAt: syncedAt}
	publisher := &fakePublisher{url: "https://acct.blob.core.windows.net/exports/data_export.csv"}

	result, err := newTestPipeline(t, cfg, extractor, stager, publisher).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, result.State)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 3, result.Extracted)
	assert.Equal(t, 3, result.Exported)
	assert.Equal(t, publisher.url, result.BlobURL)
	assert.False(t, result.Skipped)

	// Every staged record carries the same synced_at.
	for _, r := range stager.staged.Rows() {
		v, ok := r.Get("synced_at")
		require.True(t, ok)
		assert.Equal(t, syncedAt, v)
	}

	// CSV carries header plus one line per record; null signup renders
	// as an empty field.
	csv := string(publisher.data)
	assert.Contains(t, csv, "id,name,signup,synced_at")
	assert.Contains(t, csv, "2,B,,2023-03-10 08:45:30")

	// Local intermediate copy was cleaned up after publish.
	_, statErr := os.Stat(cfg.Export.LocalPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunEmptySourceSkipsExport(t *testing.T) {
	cfg := testConfig(t)
	extractor := &fakeExtractor{rs: recordset.New()}
	stager := &fakeStager{}
	publisher := &fakePublisher{url: "unused"}

	result, err := newTestPipeline(t, cfg, extractor, stager, publisher).Run(context.Background())
	require.Error(t, err)

	assert.True(t, xerrors.IsNoData(err))
	assert.Equal(t, StateFailed, result.State)
	assert.True(t, result.Skipped)
	assert.Zero(t, result.Exported)

	// Staging still ran (the collection is cleared), but no upload was
	// attempted and no local file exists.
	assert.True(t, stager.stageCalled)
	assert.False(t, publisher.called)
	_, statErr := os.Stat(cfg.Export.LocalPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunExtractFailureShortCircuits(t *testing.T) {
	cfg := testConfig(t)
	boom := xerrors.New(xerrors.ErrorTypeConnection, "postgres unreachable")
	extractor := &fakeExtractor{err: boom}
	stager := &fakeStager{}
	publisher := &fakePublisher{}

	result, err := newTestPipeline(t, cfg, extractor, stager, publisher).Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateFailed, result.State)
	assert.True(t, xerrors.IsType(err, xerrors.ErrorTypeConnection))
	assert.False(t, stager.stageCalled)
	assert.False(t, publisher.called)
}

func TestRunStageFailureShortCircuits(t *testing.T) {
	cfg := testConfig(t)
	extractor := &fakeExtractor{rs: sourceRecords()}
	stager := &fakeStager{stageErr: xerrors.New(xerrors.ErrorTypeQuery, "insert failed")}
	publisher := &fakePublisher{}

	result, err := newTestPipeline(t, cfg, extractor, stager, publisher).Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateFailed, result.State)
	assert.False(t, publisher.called)
}

func TestRunUnstageFailureShortCircuits(t *testing.T) {
	cfg := testConfig(t)
	extractor := &fakeExtractor{rs: sourceRecords()}
	stager := &fakeStager{unstageErr: xerrors.New(xerrors.ErrorTypeQuery, "find failed")}
	publisher := &fakePublisher{}

	result, err := newTestPipeline(t, cfg, extractor, stager, publisher).Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateFailed, result.State)
	assert.False(t, publisher.called)
}

func TestRunPublishFailureCleansUpLocal(t *testing.T) {
	cfg := testConfig(t)
	extractor := &fakeExtractor{rs: sourceRecords()}
	stager := &fakeStager{syncedAt: time.Now().UTC()}
	publisher := &fakePublisher{err: xerrors.New(xerrors.ErrorTypePublish, "upload failed")}

	result, err := newTestPipeline(t, cfg, extractor, stager, publisher).Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateFailed, result.State)
	assert.True(t, xerrors.IsType(err, xerrors.ErrorTypePublish))
	assert.Empty(t, result.BlobURL)

	// Cleanup is best-effort but runs on failed publish attempts too.
	_, statErr := os.Stat(cfg.Export.LocalPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunOverwriteKeepsURLStable(t *testing.T) {
	cfg := testConfig(t)
	url := "https://acct.blob.core.windows.net/exports/data_export.csv"

	first := &fakePublisher{url: url}
	rs1 := recordset.New()
	rs1.Append(recordset.Record{{Name: "id", Value: 1}})
	result1, err := newTestPipeline(t, cfg, &fakeExtractor{rs: rs1}, &fakeStager{syncedAt: time.Now().UTC()}, first).Run(context.Background())
	require.NoError(t, err)

	second := &fakePublisher{url: url}
	rs2 := recordset.New()
	rs2.Append(recordset.Record{{Name: "id", Value: 99}})
	result2, err := newTestPipeline(t, cfg, &fakeExtractor{rs: rs2}, &fakeStager{syncedAt: time.Now().UTC()}, second).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, result1.BlobURL, result2.BlobURL)
	assert.NotEqual(t, first.data, second.data)
}

func TestRunNoLocalPathSkipsMaterialization(t *testing.T) {
	cfg := testConfig(t)
	cfg.Export.LocalPath = ""
	extractor := &fakeExtractor{rs: sourceRecords()}
	stager := &fakeStager{syncedAt: time.Now().UTC()}
	publisher := &fakePublisher{url: "https://acct.blob.core.windows.net/exports/data_export.csv"}

	result, err := newTestPipeline(t, cfg, extractor, stager, publisher).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, result.State)
}

func TestRunErrorIsResurfacedUnchanged(t *testing.T) {
	cfg := testConfig(t)
	boom := errors.New("opaque failure")
	extractor := &fakeExtractor{err: boom}

	_, err := newTestPipeline(t, cfg, extractor, &fakeStager{}, &fakePublisher{}).Run(context.Background())
	assert.ErrorIs(t, err, boom)
}
