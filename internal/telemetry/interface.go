package telemetry

import (
	"context"
	"time"
)

// Collector records per-device tick telemetry.
type Collector interface {
	Record(ctx context.Context, record *DeviceRecord) error
	Close() error
}

// DeviceRecord is one device's telemetry and fan decision for one tick.
type DeviceRecord struct {
	Timestamp   time.Time
	DeviceID    int
	PowerDraw   float64
	CoreTemp    int
	MemTemp     *float64 // nil when unavailable
	UtilGPU     int
	UtilMemory  int
	ClockCore   int
	ClockMemory int
	MemoryUsed  uint64
	FanMode     string
	FanSpeed    int
}
