package telemetry_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/nvidiamon/internal/logger"
	"codeberg.org/mutker/nvidiamon/internal/telemetry"
)

func TestMain(m *testing.M) {
	logger.Init(false, false, true)
	os.Exit(m.Run())
}

func testRecord(deviceID int, memTemp *float64) *telemetry.DeviceRecord {
	return &telemetry.DeviceRecord{
		Timestamp:   time.Unix(1756600000, 0),
		DeviceID:    deviceID,
		PowerDraw:   150.5,
		CoreTemp:    62,
		MemTemp:     memTemp,
		UtilGPU:     45,
		UtilMemory:  20,
		ClockCore:   2100,
		ClockMemory: 10500,
		MemoryUsed:  2 << 30,
		FanMode:     "manual",
		FanSpeed:    40,
	}
}

func TestNoopCollectorWhenDisabled(t *testing.T) {
	collector, err := telemetry.NewService(telemetry.Config{Enabled: false}, logger.Default())
	require.NoError(t, err)

	require.NoError(t, collector.Record(context.Background(), testRecord(0, nil)))
	require.NoError(t, collector.Close())
}

func TestRecordAndUpsert(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "telemetry.db")
	cfg := telemetry.Config{DBPath: dbPath, Enabled: true}

	collector, err := telemetry.NewService(cfg, logger.Default())
	require.NoError(t, err)

	memTemp := 84.0
	require.NoError(t, collector.Record(context.Background(), testRecord(0, &memTemp)))
	require.NoError(t, collector.Record(context.Background(), testRecord(1, nil)))

	// Same timestamp and device: row is replaced, not duplicated.
	updated := testRecord(0, &memTemp)
	updated.FanSpeed = 55
	require.NoError(t, collector.Record(context.Background(), updated))
	require.NoError(t, collector.Close())

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM telemetry").Scan(&count))
	assert.Equal(t, 2, count)

	var fanSpeed int
	var memTempCol sql.NullFloat64
	require.NoError(t, db.QueryRow(
		"SELECT fan_speed, mem_temp FROM telemetry WHERE device_id = 0").Scan(&fanSpeed, &memTempCol))
	assert.Equal(t, 55, fanSpeed)
	require.True(t, memTempCol.Valid)
	assert.InDelta(t, 84.0, memTempCol.Float64, 0.001)

	require.NoError(t, db.QueryRow(
		"SELECT mem_temp FROM telemetry WHERE device_id = 1").Scan(&memTempCol))
	assert.False(t, memTempCol.Valid, "absent memory temperature stays NULL")
}

func TestNilRecordRejected(t *testing.T) {
	collector, err := telemetry.NewService(telemetry.Config{Enabled: false}, logger.Default())
	require.NoError(t, err)

	dbPath := filepath.Join(t.TempDir(), "telemetry.db")
	enabled, err := telemetry.NewService(telemetry.Config{DBPath: dbPath, Enabled: true}, logger.Default())
	require.NoError(t, err)
	defer enabled.Close()

	assert.Error(t, enabled.Record(context.Background(), nil))
	assert.NoError(t, collector.Record(context.Background(), nil), "noop collector accepts anything")
}
