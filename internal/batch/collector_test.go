package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"foldbatch/internal/driver"
	"foldbatch/internal/model"
	"foldbatch/internal/runstore"
)

func TestCollect_ExtractsArchiveAndWritesMetadata(t *testing.T) {
	store, err := runstore.New(t.TempDir())
	require.NoError(t, err)

	d := newFakeDriver(map[string]*scriptedJob{"j": {}})
	id, err := d.Submit(context.Background(), driver.JobSpec{JobName: "j"})
	require.NoError(t, err)

	job := model.Job{JobName: "j", JobID: id, ProteinName: "p53"}
	collector := NewCollector(d, store, zap.NewNop())

	dir, err := collector.Collect(context.Background(), &job)
	require.NoError(t, err)
	require.Equal(t, store.JobDir(id), dir)

	extracted, err := os.ReadDir(filepath.Join(dir, "extracted"))
	require.NoError(t, err)
	require.Len(t, extracted, 2)

	var meta model.JobMetadata
	require.NoError(t, runstore.ReadJSON(filepath.Join(dir, "job_metadata.json"), &meta))
	require.Equal(t, "j", meta.JobInfo.JobName)
	require.Equal(t, "p53", meta.JobInfo.ProteinName)
	require.NotEmpty(t, meta.ExtractionTime)
	require.ElementsMatch(t, []string{"model_0.cif", "ranking.json"}, meta.ExtractedFiles)
}

func TestCollect_DownloadFailureReturnsDownloadError(t *testing.T) {
	store, err := runstore.New(t.TempDir())
	require.NoError(t, err)

	d := newFakeDriver(map[string]*scriptedJob{"j": {downloadErr: errors.New("download button not found")}})
	id, err := d.Submit(context.Background(), driver.JobSpec{JobName: "j"})
	require.NoError(t, err)

	job := model.Job{JobName: "j", JobID: id}
	collector := NewCollector(d, store, zap.NewNop())

	_, err = collector.Collect(context.Background(), &job)
	var derr *DownloadError
	require.ErrorAs(t, err, &derr)
	require.Equal(t, id, derr.JobID)
}

func TestCollect_MissingArchiveIsNotAFailure(t *testing.T) {
	store, err := runstore.New(t.TempDir())
	require.NoError(t, err)

	// driver that "downloads" nothing
	d := &emptyDownloadDriver{}
	job := model.Job{JobName: "j", JobID: "af-9"}
	collector := NewCollector(d, store, zap.NewNop())

	dir, err := collector.Collect(context.Background(), &job)
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "job_metadata.json"))
	require.True(t, os.IsNotExist(statErr))
}

type emptyDownloadDriver struct{}

func (emptyDownloadDriver) Submit(context.Context, driver.JobSpec) (string, error) {
	return "", errors.New("not implemented")
}

func (emptyDownloadDriver) PollStatus(context.Context, string) (driver.Status, error) {
	return driver.StatusUnknown, nil
}

func (emptyDownloadDriver) Download(context.Context, string, string) error {
	return nil
}
