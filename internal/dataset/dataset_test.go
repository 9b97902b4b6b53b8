package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thermal-backend/internal/features"
	"thermal-backend/internal/models"
)

const sample = `sid,bmi,mean_sa02,HRV_SDNN,HR_mean,gender,age,TEMP_median,extra
1,22.5,98.5,45.2,72.0,F,30,34.8,x
2,24.1,97.0,,80.0,M,41,35.1,x
3,21.0,96.5,30.0,65.0,M,55,0,x
4,27.3,95.0,52.0,0,F,62,34.0,x
5,19.8,99.0,61.5,70.0,F,nan,35.9,x
6,23.0,98.0,40.0,75.0,M,28,33.2,x
`

func writeSample(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	return path
}

func TestCSVSourceParsesNulls(t *testing.T) {
	src := CSVSource{Path: writeSample(t)}
	records, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 6)

	assert.Equal(t, 72.0, *records[0].HRMean)
	assert.Equal(t, "F", *records[0].Gender)
	assert.Equal(t, 34.8, *records[0].TempMedian)
	assert.Nil(t, records[1].HRVSDNN)
	assert.Nil(t, records[4].Age)
	assert.Equal(t, "csv:"+src.Path, src.Describe())
}

func TestCSVSourceMissingFile(t *testing.T) {
	_, err := CSVSource{Path: filepath.Join(t.TempDir(), "nope.csv")}.Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestClean(t *testing.T) {
	records, err := CSVSource{Path: writeSample(t)}.Load(context.Background())
	require.NoError(t, err)

	kept, stats := Clean(features.ServiceAge, records)
	assert.Equal(t, CleanStats{Total: 6, Missing: 2, ZeroTemp: 1, ZeroHeart: 1, Kept: 2}, stats)
	assert.Equal(t, []float64{34.8, 33.2}, Targets(kept))
	assert.Equal(t, []float64{30, 28}, Ages(kept))

	// without age the nan-age row survives
	kept, stats = Clean(features.Service, records)
	assert.Equal(t, 3, stats.Kept)
	assert.Len(t, kept, 3)
}

type fakeStore struct {
	records []models.Record
}

func (f fakeStore) LoadObservations(ctx context.Context) ([]models.Record, error) {
	return f.records, nil
}

func TestStoreSource(t *testing.T) {
	src := StoreSource{Store: fakeStore{records: []models.Record{{BMI: models.Float(20)}}}, Name: "clickhouse"}
	records, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "clickhouse", src.Describe())
}
