package database

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thermal-backend/internal/models"
	"thermal-backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetForTest()
	os.Exit(m.Run())
}

// fakeConn records statements; unimplemented driver.Conn methods panic
type fakeConn struct {
	driver.Conn
	pingErr error
	execs   []string
	batches []*fakeBatch
	closed  bool
}

func (c *fakeConn) Ping(ctx context.Context) error { return c.pingErr }

func (c *fakeConn) Exec(ctx context.Context, query string, args ...any) error {
	c.execs = append(c.execs, query)
	return nil
}

func (c *fakeConn) PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error) {
	b := &fakeBatch{}
	c.batches = append(c.batches, b)
	return b, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeBatch struct {
	driver.Batch
	rows [][]any
	sent bool
}

func (b *fakeBatch) Append(v ...any) error {
	b.rows = append(b.rows, v)
	return nil
}

func (b *fakeBatch) Send() error {
	b.sent = true
	return nil
}

func TestSchemaCreatedOnce(t *testing.T) {
	conn := &fakeConn{}
	_, err := newClickHouseDB(context.Background(), conn)
	require.NoError(t, err)

	assert.Equal(t, AllTables(), conn.execs)
	assert.False(t, conn.closed)
}

func TestPingFailureClosesConnection(t *testing.T) {
	conn := &fakeConn{pingErr: errors.New("connection refused")}
	_, err := newClickHouseDB(context.Background(), conn)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping ClickHouse")
	assert.True(t, conn.closed)
	assert.Empty(t, conn.execs)
}

func TestRepeatedImportsGetDistinctKeys(t *testing.T) {
	conn := &fakeConn{}
	db, err := newClickHouseDB(context.Background(), conn)
	require.NoError(t, err)

	records := make([]models.Record, 12)
	for i := range records {
		records[i] = models.Record{HRMean: models.Float(60 + float64(i)), TempMedian: models.Float(34)}
	}

	first, err := db.SaveObservations(context.Background(), records)
	require.NoError(t, err)
	second, err := db.SaveObservations(context.Background(), records[:3])
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	require.Len(t, conn.batches, 2)
	batch := conn.batches[0]
	assert.True(t, batch.sent)
	require.Len(t, batch.rows, 12)
	for i, row := range batch.rows {
		assert.Equal(t, first, row[1].(uuid.UUID))
		assert.Equal(t, uint32(i+1), row[2])
	}
	assert.Equal(t, second, conn.batches[1].rows[0][1].(uuid.UUID))
	assert.Equal(t, uint32(1), conn.batches[1].rows[0][2])
}

func TestObservationsOrderedByNumericRow(t *testing.T) {
	assert.Contains(t, ObservationsTableSQL, "row_number UInt32")
	assert.Contains(t, ObservationsTableSQL, "ORDER BY (timestamp, import_id, row_number)")
	assert.NotContains(t, ObservationsTableSQL, "subject_id")
}
