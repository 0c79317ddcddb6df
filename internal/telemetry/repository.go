package telemetry

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"codeberg.org/mutker/nvidiamon/internal/errors"
	"codeberg.org/mutker/nvidiamon/internal/logger"
)

type Repository interface {
	Store(record *DeviceRecord) error
	Close() error
}

type sqliteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	log.Debug().Msgf("Initializing telemetry repository at: %s", cfg.DBPath)

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal=WAL")
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	return &sqliteRepository{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS telemetry (
            timestamp INTEGER NOT NULL,
            device_id INTEGER NOT NULL,
            power_draw REAL,
            core_temp INTEGER,
            mem_temp REAL,
            util_gpu INTEGER,
            util_memory INTEGER,
            clock_core INTEGER,
            clock_memory INTEGER,
            memory_used INTEGER,
            fan_mode TEXT,
            fan_speed INTEGER,
            PRIMARY KEY (timestamp, device_id)
        )
    `)

	return err
}

func (r *sqliteRepository) Store(record *DeviceRecord) error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	var memTemp sql.NullFloat64
	if record.MemTemp != nil {
		memTemp = sql.NullFloat64{Float64: *record.MemTemp, Valid: true}
	}

	_, err := r.db.Exec(`
        INSERT INTO telemetry (
            timestamp, device_id, power_draw, core_temp, mem_temp,
            util_gpu, util_memory, clock_core, clock_memory,
            memory_used, fan_mode, fan_speed
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(timestamp, device_id) DO UPDATE SET
            power_draw = excluded.power_draw,
            core_temp = excluded.core_temp,
            mem_temp = excluded.mem_temp,
            util_gpu = excluded.util_gpu,
            util_memory = excluded.util_memory,
            clock_core = excluded.clock_core,
            clock_memory = excluded.clock_memory,
            memory_used = excluded.memory_used,
            fan_mode = excluded.fan_mode,
            fan_speed = excluded.fan_speed
    `,
		record.Timestamp.Unix(),
		record.DeviceID,
		record.PowerDraw,
		record.CoreTemp,
		memTemp,
		record.UtilGPU,
		record.UtilMemory,
		record.ClockCore,
		record.ClockMemory,
		record.MemoryUsed,
		record.FanMode,
		record.FanSpeed,
	)
	if err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *sqliteRepository) Close() error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}
	return nil
}
