package gpu

import (
	"codeberg.org/mutker/nvidiamon/internal/errors"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const milliWattsToWatts = 1000

// Snapshot is one tick's complete telemetry reading for a device. It is
// rebuilt wholesale every tick; fields a device cannot report carry their
// Has* flag cleared instead of aborting the read.
type Snapshot struct {
	DeviceID    int
	Name        string
	PowerDraw   float64 // W
	MaxTDP      float64 // W
	CoreTemp    int     // °C
	UtilGPU     int     // %
	UtilMemory  int     // %
	ClockCore   int     // MHz
	ClockMemory int     // MHz
	MemoryTotal uint64  // bytes
	MemoryUsed  uint64  // bytes

	FanSpeed    int // %
	HasFanSpeed bool

	// Locked ("application") clocks, resolved against the current clock
	// when the device reports no override.
	LockCore     int
	LockMemory   int
	OffsetCore   int
	OffsetMemory int
}

// Device is one enumerated accelerator. The index is stable for the
// process lifetime.
type Device struct {
	handle   nvml.Device
	index    int
	name     string
	busID    string
	pciID    uint32
	fanCount int
}

func (d *Device) ID() int       { return d.index }
func (d *Device) Name() string  { return d.name }
func (d *Device) BusID() string { return d.busID }
func (d *Device) PCIID() uint32 { return d.pciID }
func (d *Device) FanCount() int { return d.fanCount }

// ReadSnapshot reads all per-tick telemetry for the device. Optional
// metrics degrade per-field; any required read failing fails the whole
// snapshot for this device only.
func (d *Device) ReadSnapshot(zeroLockUnlocked bool) (Snapshot, error) {
	errFactory := errors.New()
	s := Snapshot{DeviceID: d.index, Name: d.name}

	power, ret := d.handle.GetPowerUsage()
	if !IsNVMLSuccess(ret) {
		return Snapshot{}, errFactory.Wrap(ErrSnapshotFailed, newNVMLError(ret))
	}
	s.PowerDraw = float64(power) / milliWattsToWatts

	limit, ret := d.handle.GetPowerManagementLimit()
	if !IsNVMLSuccess(ret) {
		return Snapshot{}, errFactory.Wrap(ErrSnapshotFailed, newNVMLError(ret))
	}
	s.MaxTDP = float64(limit) / milliWattsToWatts

	temp, ret := d.handle.GetTemperature(nvml.TEMPERATURE_GPU)
	if !IsNVMLSuccess(ret) {
		return Snapshot{}, errFactory.Wrap(ErrTemperatureReadFailed, newNVMLError(ret))
	}
	s.CoreTemp = int(temp)

	util, ret := d.handle.GetUtilizationRates()
	if !IsNVMLSuccess(ret) {
		return Snapshot{}, errFactory.Wrap(ErrSnapshotFailed, newNVMLError(ret))
	}
	s.UtilGPU = int(util.Gpu)
	s.UtilMemory = int(util.Memory)

	mem, ret := d.handle.GetMemoryInfo()
	if !IsNVMLSuccess(ret) {
		return Snapshot{}, errFactory.Wrap(ErrSnapshotFailed, newNVMLError(ret))
	}
	s.MemoryTotal = mem.Total
	s.MemoryUsed = mem.Used

	coreClock, ret := d.handle.GetClockInfo(nvml.CLOCK_GRAPHICS)
	if !IsNVMLSuccess(ret) {
		return Snapshot{}, errFactory.Wrap(ErrSnapshotFailed, newNVMLError(ret))
	}
	s.ClockCore = int(coreClock)

	memClock, ret := d.handle.GetClockInfo(nvml.CLOCK_MEM)
	if !IsNVMLSuccess(ret) {
		return Snapshot{}, errFactory.Wrap(ErrSnapshotFailed, newNVMLError(ret))
	}
	s.ClockMemory = int(memClock)

	// Fan speed is informational only and absent on passively cooled
	// boards.
	if speed, ret := d.handle.GetFanSpeed(); IsNVMLSuccess(ret) {
		s.FanSpeed = int(speed)
		s.HasFanSpeed = true
	}

	s.LockCore = d.lockedClock(nvml.CLOCK_GRAPHICS, s.ClockCore, zeroLockUnlocked)
	s.LockMemory = d.lockedClock(nvml.CLOCK_MEM, s.ClockMemory, zeroLockUnlocked)
	s.OffsetCore = s.LockCore - s.ClockCore
	s.OffsetMemory = s.LockMemory - s.ClockMemory

	return s, nil
}

// lockedClock reads the application clock for clockType, falling back to
// the current clock when the device reports none.
func (d *Device) lockedClock(clockType nvml.ClockType, current int, zeroMeansUnlocked bool) int {
	lock, ret := d.handle.GetApplicationsClock(clockType)
	if !IsNVMLSuccess(ret) {
		return current
	}

	return ResolveLockedClock(int(lock), current, zeroMeansUnlocked)
}

// ResolveLockedClock applies the zero-lock sentinel rule: some driver
// versions report 0 for "no application clock set", in which case the
// current clock is the effective lock.
func ResolveLockedClock(lock, current int, zeroMeansUnlocked bool) int {
	if lock == 0 && zeroMeansUnlocked {
		return current
	}

	return lock
}
