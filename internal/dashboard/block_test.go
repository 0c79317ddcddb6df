package dashboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/nvidiamon/internal/dashboard"
	"codeberg.org/mutker/nvidiamon/internal/fancontrol"
	"codeberg.org/mutker/nvidiamon/internal/gpu"
)

// plainTheme renders every role unstyled, keeping assertions readable.
var plainTheme = dashboard.Theme{}

func sampleSnapshot() gpu.Snapshot {
	return gpu.Snapshot{
		DeviceID:    0,
		Name:        "NVIDIA GeForce RTX 4090",
		PowerDraw:   123.5,
		MaxTDP:      450,
		CoreTemp:    65,
		UtilGPU:     40,
		UtilMemory:  25,
		ClockCore:   2100,
		ClockMemory: 10500,
		MemoryTotal: 24 * 1024 * 1024 * 1024,
		MemoryUsed:  2 * 1024 * 1024 * 1024,
		FanSpeed:    35,
		HasFanSpeed: true,
		LockCore:    2100,
		LockMemory:  10500,
	}
}

func TestDeviceBlockManualDecision(t *testing.T) {
	fan := dashboard.FanStatus{
		Actuated: true,
		Decision: fancontrol.Decision{Mode: fancontrol.Manual, Speed: 57},
	}
	memTemp := 84.0

	block := dashboard.DeviceBlock(plainTheme, sampleSnapshot(), fan, true, &memTemp)

	assert.Contains(t, block[0], "GPU 0 (NVIDIA GeForce RTX 4090)")
	assert.Contains(t, block, "Power: 123.50 W / Max TDP: 450.00 W")
	assert.Contains(t, block, "Temp: 65 °C ✅")
	assert.Contains(t, block, "GDDR6: 84 °C ✅")
	assert.Contains(t, block, "Manual Fan Speed: 57%")
	assert.Contains(t, block, "Memory - Total: 24576.00 MB, Used: 2048.00 MB")
}

func TestDeviceBlockAutoDecision(t *testing.T) {
	fan := dashboard.FanStatus{
		Actuated: true,
		Decision: fancontrol.Decision{Mode: fancontrol.Automatic},
	}
	memTemp := 55.0

	block := dashboard.DeviceBlock(plainTheme, sampleSnapshot(), fan, true, &memTemp)
	assert.Contains(t, block, "Fan Control: Auto")
}

func TestDeviceBlockFallsBackToHardwareSpeed(t *testing.T) {
	block := dashboard.DeviceBlock(plainTheme, sampleSnapshot(), dashboard.FanStatus{}, false, nil)
	assert.Contains(t, block, "Fan Speed: 35%")
	assert.NotContains(t, block, "GDDR6 Temp: Not Available")
}

func TestDeviceBlockPlaceholders(t *testing.T) {
	s := sampleSnapshot()
	s.HasFanSpeed = false

	block := dashboard.DeviceBlock(plainTheme, s, dashboard.FanStatus{}, true, nil)
	assert.Contains(t, block, "Fan Speed: Not Supported")
	assert.Contains(t, block, "GDDR6 Temp: Not Available")
}

func TestTemperatureWarningIcons(t *testing.T) {
	s := sampleSnapshot()
	s.CoreTemp = 85
	memTemp := 102.0

	block := dashboard.DeviceBlock(plainTheme, s, dashboard.FanStatus{}, true, &memTemp)
	assert.Contains(t, block, "Temp: 85 °C 🔥")
	assert.Contains(t, block, "GDDR6: 102 °C 🔥")

	s.CoreTemp = 79
	memTemp = 99.0
	block = dashboard.DeviceBlock(plainTheme, s, dashboard.FanStatus{}, true, &memTemp)
	assert.Contains(t, block, "Temp: 79 °C ✅")
	assert.Contains(t, block, "GDDR6: 99 °C ✅")
}

func TestTotals(t *testing.T) {
	var totals dashboard.Totals

	s1 := sampleSnapshot()
	s2 := sampleSnapshot()
	s2.DeviceID = 1
	s2.PowerDraw = 100
	s2.UtilGPU = 80

	totals.Add(s1)
	totals.Add(s2)

	assert.InDelta(t, 223.5, totals.Power, 0.001)
	assert.Equal(t, 120, totals.UtilGPU)
	assert.InDelta(t, 60.0, totals.AverageUtil(), 0.001)
	assert.Equal(t, 2, totals.Devices)
}

func TestFooterShowsFailuresOnlyWhenPresent(t *testing.T) {
	totals := dashboard.Totals{Devices: 1}

	lines := dashboard.Footer(plainTheme, totals)
	require.Len(t, lines, 4)

	totals.Failures = 2
	lines = dashboard.Footer(plainTheme, totals)
	require.Len(t, lines, 5)
	assert.Contains(t, lines[4], "Fan actuation failures: 2")
}

func TestHeader(t *testing.T) {
	lines := dashboard.Header(plainTheme)
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "NVIDIA GPU Monitoring Tool")
	assert.Equal(t, lines[0], lines[2])
}
