package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qpcr/internal/assay"
	"qpcr/internal/classify"
	"qpcr/internal/normalize"
	"qpcr/internal/result"
	"qpcr/internal/split"
)

func sampleRun(id string, created time.Time) *result.Run {
	return &result.Run{
		ID:         id,
		Instrument: "QuantStudio 5",
		Assay: &assay.Assay{
			Name:     "lasv",
			Kind:     assay.KindViral,
			Channels: []assay.Channel{{Code: "FAM", Target: "LASV"}, {Code: "VIC", Target: assay.ICTarget}},
			IC:       "VIC",
			CtCutoff: 40,
		},
		Sources: []string{"/runs/" + id + ".xlsx"},
		Created: created,
		Metadata: split.Metadata{
			{Key: "Experiment Name", Value: "Kit " + id},
			{Key: "Operator", Value: "JS"},
			{Key: "Operator", Value: "second entry"},
		},
		Wells: []normalize.Well{
			{Position: "A1", Sample: "S1", Copies: normalize.Some(1e5), Comments: "1e5 copies",
				Channels: map[string]normalize.ChannelValues{"FAM": {CT: 20.5, Amplitude: normalize.Some(7.1)}, "VIC": {CT: 25}}},
			{Position: "A2", Sample: "NTC",
				Channels: map[string]normalize.ChannelValues{"FAM": {CT: 40}, "VIC": {CT: 27}}},
		},
		Calls: []classify.WellCall{
			{Position: "A1", Sample: "S1", Targets: []classify.TargetCall{{Code: "FAM", Target: "LASV", Call: classify.Positive}}, Result: "LASV Positive"},
			{Position: "A2", Sample: "NTC", Targets: []classify.TargetCall{{Code: "FAM", Target: "LASV", Call: classify.Negative}}, Result: "Negative"},
		},
	}
}

func open(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "runs.sqlite"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndList(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	t0 := time.Date(2024, 5, 11, 9, 30, 0, 0, time.UTC)
	require.NoError(t, s.Save(ctx, sampleRun("r1", t0)))
	require.NoError(t, s.Save(ctx, sampleRun("r2", t0.Add(time.Hour))))

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID, "newest first")
	assert.Equal(t, "Kit r1", runs[1].Experiment)
	assert.Equal(t, []string{"/runs/r1.xlsx"}, runs[1].Sources)
	assert.True(t, t0.Equal(runs[1].Created))
	assert.Equal(t, 2, runs[1].Wells)
	assert.Equal(t, "viral", runs[1].AssayKind)

	runs, err = s.Runs(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestMetadataKeepsOrderAndRepeats(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	r := sampleRun("r1", time.Now())
	require.NoError(t, s.Save(ctx, r))

	meta, err := s.Metadata(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, r.Metadata, meta)
}

func TestWellsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	require.NoError(t, s.Save(ctx, sampleRun("r1", time.Now())))

	wells, err := s.Wells(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, wells, 2)

	a1 := wells[0]
	assert.Equal(t, "r1", a1.RunID)
	assert.Equal(t, "A1", a1.WellPosition)
	require.NotNil(t, a1.Copies)
	assert.Equal(t, 1e5, *a1.Copies)
	require.Len(t, a1.Channels, 2)
	assert.Equal(t, "FAM", a1.Channels[0].Code)
	require.NotNil(t, a1.Channels[0].DRn)
	assert.Equal(t, 7.1, *a1.Channels[0].DRn)
	assert.Equal(t, "LASV Positive", a1.Result)

	assert.Nil(t, wells[1].Copies)
	assert.Equal(t, "Negative", string(wells[1].Calls[0].Call))

	none, err := s.Wells(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDuplicateRunRollsBack(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	r := sampleRun("r1", time.Now())
	require.NoError(t, s.Save(ctx, r))
	assert.Error(t, s.Save(ctx, r))

	wells, err := s.Wells(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, wells, 2, "failed save leaves the first copy untouched")
}

func TestReopenKeepsRuns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.sqlite")
	s, err := Open(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleRun("r1", time.Now())))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path, nil)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
