package dashboard

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/nvidiamon/internal/fancontrol"
	"codeberg.org/mutker/nvidiamon/internal/gpu"
)

const (
	coreTempWarn = 80  // °C
	memTempWarn  = 100 // °C
	bytesPerMiB  = 1024 * 1024
	headerWidth  = 40

	warnIcon = "🔥"
	okIcon   = "✅"
)

// FanStatus describes what the fan line should show: the decision this
// process applied, or the hardware-reported speed when no actuation
// happened for the device this tick.
type FanStatus struct {
	Actuated bool
	Decision fancontrol.Decision
}

// DeviceBlock builds the display block for one device from this tick's
// snapshot and decision.
func DeviceBlock(theme Theme, s gpu.Snapshot, fan FanStatus, memTempEnabled bool, memTemp *float64) Block {
	block := Block{
		theme.Render(RoleTitle, fmt.Sprintf("GPU %d (%s) Status:", s.DeviceID, s.Name)),
		theme.Render(RoleMetric, fmt.Sprintf("Power: %.2f W / Max TDP: %.2f W", s.PowerDraw, s.MaxTDP)),
		tempLine(theme, fmt.Sprintf("Temp: %d °C", s.CoreTemp), float64(s.CoreTemp), coreTempWarn),
	}

	if memTempEnabled {
		if memTemp != nil {
			block = append(block, tempLine(theme,
				fmt.Sprintf("GDDR6: %.0f °C", *memTemp), *memTemp, memTempWarn))
		} else {
			block = append(block, theme.Render(RoleTemp, "GDDR6 Temp: Not Available"))
		}
	}

	block = append(block,
		theme.Render(RoleMetric, fmt.Sprintf("Utilization - GPU: %d%%, Memory: %d%%", s.UtilGPU, s.UtilMemory)),
		theme.Render(RoleTemp, fmt.Sprintf("Clocks - GPU: %d MHz, Memory: %d MHz", s.ClockCore, s.ClockMemory)),
		theme.Render(RoleMetric, fmt.Sprintf("Memory - Total: %.2f MB, Used: %.2f MB",
			float64(s.MemoryTotal)/bytesPerMiB, float64(s.MemoryUsed)/bytesPerMiB)),
		fanLine(theme, s, fan),
		theme.Render(RoleMetric, "OC Parameters:"),
		theme.Render(RoleMetric, fmt.Sprintf("  Core clock offset: %d MHz", s.OffsetCore)),
		theme.Render(RoleMetric, fmt.Sprintf("  Core clock lock: %d MHz", s.LockCore)),
		theme.Render(RoleMetric, fmt.Sprintf("  Memory clock offset: %d MHz", s.OffsetMemory)),
		theme.Render(RoleMetric, fmt.Sprintf("  Memory clock lock: %d MHz", s.LockMemory)),
		theme.Render(RoleMetric, fmt.Sprintf("  Powerlimit: %.2f W", s.MaxTDP)),
	)

	return block
}

// UnavailableBlock stands in for a device whose telemetry read failed,
// so one faulty device does not blank the whole dashboard.
func UnavailableBlock(theme Theme, deviceID int) Block {
	return Block{
		theme.Render(RoleTitle, fmt.Sprintf("GPU %d Status:", deviceID)),
		theme.Render(RoleAlert, "Telemetry: Not Available"),
	}
}

func tempLine(theme Theme, text string, value, warnAt float64) string {
	if value >= warnAt {
		return theme.Render(RoleAlert, text+" "+warnIcon)
	}

	return theme.Render(RoleTemp, text+" "+okIcon)
}

func fanLine(theme Theme, s gpu.Snapshot, fan FanStatus) string {
	if fan.Actuated {
		if fan.Decision.Mode == fancontrol.Manual {
			return theme.Render(RoleStatus, fmt.Sprintf("Manual Fan Speed: %d%%", fan.Decision.Speed))
		}
		return theme.Render(RoleStatus, "Fan Control: Auto")
	}

	if !s.HasFanSpeed {
		return theme.Render(RoleStatus, "Fan Speed: Not Supported")
	}

	return theme.Render(RoleStatus, fmt.Sprintf("Fan Speed: %d%%", s.FanSpeed))
}

// Totals accumulates the aggregate footer metrics for one tick.
type Totals struct {
	Power    float64
	MemUsed  uint64
	UtilGPU  int
	Devices  int
	Failures int // failed actuation attempts this tick
}

// Add folds one device snapshot into the totals.
func (t *Totals) Add(s gpu.Snapshot) {
	t.Power += s.PowerDraw
	t.MemUsed += s.MemoryUsed
	t.UtilGPU += s.UtilGPU
	t.Devices++
}

// AverageUtil is the unweighted mean GPU utilization across devices.
func (t *Totals) AverageUtil() float64 {
	if t.Devices == 0 {
		return 0
	}

	return float64(t.UtilGPU) / float64(t.Devices)
}

// Header renders the fixed banner above the device grid.
func Header(theme Theme) []string {
	sep := strings.Repeat("=", headerWidth)

	return []string{
		sep,
		theme.Render(RoleHeader, "NVIDIA GPU Monitoring Tool"),
		sep,
	}
}

// Footer renders the aggregate lines below the device grid.
func Footer(theme Theme, totals Totals) []string {
	lines := []string{
		theme.Render(RoleTotal, fmt.Sprintf("Total power consumption: %.2f W", totals.Power)),
		theme.Render(RoleTotal, fmt.Sprintf("Total VRAM used: %.2f MB", float64(totals.MemUsed)/bytesPerMiB)),
		theme.Render(RoleAverage, fmt.Sprintf("Total GPU utilization: %.2f%%", float64(totals.UtilGPU))),
		theme.Render(RoleAverage, fmt.Sprintf("Average GPU utilization: %.2f%%", totals.AverageUtil())),
	}

	if totals.Failures > 0 {
		lines = append(lines, theme.Render(RoleAlert,
			fmt.Sprintf("Fan actuation failures: %d", totals.Failures)))
	}

	return lines
}
