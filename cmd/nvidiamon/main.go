package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/nvidiamon/internal/config"
	"codeberg.org/mutker/nvidiamon/internal/dashboard"
	"codeberg.org/mutker/nvidiamon/internal/errors"
	"codeberg.org/mutker/nvidiamon/internal/fancontrol"
	"codeberg.org/mutker/nvidiamon/internal/gpu"
	"codeberg.org/mutker/nvidiamon/internal/logger"
	"codeberg.org/mutker/nvidiamon/internal/memtemp"
	"codeberg.org/mutker/nvidiamon/internal/notify"
	"codeberg.org/mutker/nvidiamon/internal/pid"
	"codeberg.org/mutker/nvidiamon/internal/telemetry"
)

type app struct {
	cfg       *config.Config
	manager   *gpu.Manager
	policy    fancontrol.Policy
	states    map[int]fancontrol.State
	memReader memtemp.Reader
	theme     dashboard.Theme
	painter   *dashboard.Painter
	collector telemetry.Collector
	notifier  notify.Notifier
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel == "debug", cfg.LogLevel == "info", logger.IsService())
	logger.Debug().Msg("Config loaded")

	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer pid.Remove()

	a, err := newApp(cfg)
	if err != nil {
		pid.Remove()
		logger.FatalWithCode(errors.New().Wrap(errors.ErrInitApp, err)).Send()
	}
	defer a.shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	a.notifier.Ready()

	if err := a.loop(ctx); err != nil {
		logger.ErrorWithCode(errors.New().Wrap(errors.ErrMainLoop, err)).Send()
	}
	a.cleanup()
}

func newApp(cfg *config.Config) (*app, error) {
	log := logger.Default()

	policy, err := fancontrol.NewPolicy(cfg.FanTempThreshold, cfg.FanTempMax, cfg.Hysteresis)
	if err != nil {
		return nil, err
	}

	manager, err := gpu.New(log)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		manager:  manager,
		policy:   policy,
		states:   make(map[int]fancontrol.State),
		theme:    dashboard.DefaultTheme(),
		painter:  dashboard.NewPainter(os.Stdout, time.Duration(cfg.ClearInterval)*time.Second),
		notifier: notify.New(log),
	}

	if cfg.MemTemp {
		reader, err := memtemp.NewReader(log)
		if err != nil {
			// Reported once; the loop continues without
			// memory-temperature-driven actuation.
			logger.Warn().Err(err).Msg("Memory temperature reads unavailable, fan control disabled")
		} else {
			a.memReader = reader
		}
	}

	a.collector, err = telemetry.NewService(telemetry.Config{
		DBPath:  cfg.TelemetryDB,
		Enabled: cfg.Telemetry,
	}, log)
	if err != nil {
		manager.Shutdown()
		return nil, err
	}

	return a, nil
}

func (a *app) loop(ctx context.Context) error {
	errFactory := errors.New()

	if a.cfg.Interval < 1 {
		return errFactory.WithData(errors.ErrInvalidInterval, a.cfg.Interval)
	}

	ticker := time.NewTicker(time.Duration(a.cfg.Interval) * time.Second)
	defer ticker.Stop()

	a.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *app) tick(ctx context.Context) {
	now := time.Now()
	termWidth := dashboard.TerminalWidth()

	memTemps := a.readMemTemps()

	var totals dashboard.Totals
	blocks := make([]dashboard.Block, 0, len(a.manager.Devices()))

	for _, dev := range a.manager.Devices() {
		snapshot, err := dev.ReadSnapshot(a.cfg.ZeroLockUnlocked)
		if err != nil {
			logger.Warn().Err(err).Msgf("GPU %d: telemetry read failed", dev.ID())
			blocks = append(blocks, dashboard.UnavailableBlock(a.theme, dev.ID()))
			continue
		}
		totals.Add(snapshot)

		var memTemp *float64
		if temp, ok := memTemps[dev.ID()]; ok {
			memTemp = &temp
		}

		fan := a.actuate(dev, memTemp, &totals)
		blocks = append(blocks, dashboard.DeviceBlock(a.theme, snapshot, fan, a.cfg.MemTemp, memTemp))

		a.record(ctx, now, snapshot, memTemp, fan)
	}

	frame := dashboard.Header(a.theme)
	frame = append(frame, dashboard.Columns(blocks, termWidth, a.cfg.Padding)...)
	frame = append(frame, dashboard.Footer(a.theme, totals)...)

	a.painter.Paint(frame)
	a.notifier.Heartbeat()
}

func (a *app) readMemTemps() map[int]float64 {
	if a.memReader == nil {
		return nil
	}

	devices := a.manager.Devices()
	targets := make([]memtemp.Target, 0, len(devices))
	for _, dev := range devices {
		targets = append(targets, memtemp.Target{
			DeviceID: dev.ID(),
			BusID:    dev.BusID(),
			PCIID:    dev.PCIID(),
		})
	}

	return a.memReader.Read(targets)
}

// actuate runs the fan policy for one device and applies the decision.
// Actuation is best-effort: failures are counted for the footer but
// never abort the tick.
func (a *app) actuate(dev *gpu.Device, memTemp *float64, totals *dashboard.Totals) dashboard.FanStatus {
	if a.memReader == nil || memTemp == nil {
		return dashboard.FanStatus{}
	}

	state, decision := a.policy.Decide(a.states[dev.ID()], *memTemp)
	a.states[dev.ID()] = state

	var err error
	if decision.Mode == fancontrol.Manual {
		err = dev.SetManualFanSpeed(decision.Speed)
	} else {
		err = dev.EnableAutoFanControl()
	}
	if err != nil {
		totals.Failures++
		logger.Debug().Err(err).Msgf("GPU %d: fan actuation failed", dev.ID())
	}

	return dashboard.FanStatus{Actuated: true, Decision: decision}
}

func (a *app) record(ctx context.Context, now time.Time, s gpu.Snapshot, memTemp *float64, fan dashboard.FanStatus) {
	record := &telemetry.DeviceRecord{
		Timestamp:   now,
		DeviceID:    s.DeviceID,
		PowerDraw:   s.PowerDraw,
		CoreTemp:    s.CoreTemp,
		MemTemp:     memTemp,
		UtilGPU:     s.UtilGPU,
		UtilMemory:  s.UtilMemory,
		ClockCore:   s.ClockCore,
		ClockMemory: s.ClockMemory,
		MemoryUsed:  s.MemoryUsed,
		FanMode:     fan.Decision.Mode.String(),
		FanSpeed:    fan.Decision.Speed,
	}
	if !fan.Actuated {
		record.FanMode = ""
		record.FanSpeed = s.FanSpeed
	}

	if err := a.collector.Record(ctx, record); err != nil {
		logger.Debug().Err(err).Msg("failed to record telemetry")
	}
}

// cleanup hands every device back to automatic fan control so process
// exit never strands a GPU at a manual speed.
func (a *app) cleanup() {
	if a.memReader == nil {
		return
	}

	errFactory := errors.New()
	for _, dev := range a.manager.Devices() {
		if err := dev.EnableAutoFanControl(); err != nil {
			logger.ErrorWithCode(errFactory.Wrap(errors.ErrRevertFan, err)).Msgf("GPU %d: failed to revert fan control", dev.ID())
		}
	}
	logger.Info().Msg("Exiting...")
}

func (a *app) shutdown() {
	if a.collector != nil {
		if err := a.collector.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close telemetry")
		}
	}
	if a.memReader != nil {
		if err := a.memReader.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close memory temperature reader")
		}
	}
	if err := a.manager.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown NVML")
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
