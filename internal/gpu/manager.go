package gpu

import (
	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"codeberg.org/mutker/nvidiamon/internal/errors"
	"codeberg.org/mutker/nvidiamon/internal/logger"
)

// Manager owns the NVML session and the enumerated devices.
type Manager struct {
	nvml    nvmlController
	devices []*Device
	log     logger.Logger
}

// New initializes NVML and enumerates all devices in index order.
func New(log logger.Logger) (*Manager, error) {
	errFactory := errors.New()

	m := &Manager{
		nvml: &nvmlWrapper{},
		log:  log,
	}

	if err := m.nvml.Initialize(); err != nil {
		return nil, err
	}

	count, err := m.nvml.GetDeviceCount()
	if err != nil {
		_ = m.nvml.Shutdown()
		return nil, err
	}
	if count == 0 {
		_ = m.nvml.Shutdown()
		return nil, errFactory.WithMessage(ErrDeviceNotFound, "no NVIDIA devices found")
	}

	for i := 0; i < count; i++ {
		device, err := m.newDevice(i)
		if err != nil {
			_ = m.nvml.Shutdown()
			return nil, err
		}
		m.devices = append(m.devices, device)
	}

	log.Info().Msgf("Detected %d GPU(s)", count)

	return m, nil
}

func (m *Manager) newDevice(index int) (*Device, error) {
	errFactory := errors.New()

	handle, err := m.nvml.GetDevice(index)
	if err != nil {
		return nil, err
	}

	d := &Device{handle: handle, index: index}

	name, ret := handle.GetName()
	if !IsNVMLSuccess(ret) {
		return nil, errFactory.Wrap(ErrDeviceInfoFailed, newNVMLError(ret))
	}
	d.name = name

	if pci, ret := handle.GetPciInfo(); IsNVMLSuccess(ret) {
		d.busID = pciBusID(pci)
		d.pciID = pci.PciDeviceId
	} else {
		m.log.Warn().Msgf("GPU %d: failed to get PCI info: %v", index, nvml.ErrorString(ret))
	}

	count, ret := handle.GetNumFans()
	if !IsNVMLSuccess(ret) {
		return nil, errFactory.Wrap(ErrFanCountFailed, newNVMLError(ret))
	}
	d.fanCount = count

	m.log.Debug().Msgf("GPU %d: %s (%s, %d fans)", index, d.name, d.busID, d.fanCount)

	return d, nil
}

// Devices returns the enumerated devices in stable index order.
func (m *Manager) Devices() []*Device {
	return m.devices
}

func (m *Manager) Shutdown() error {
	return m.nvml.Shutdown()
}

// pciBusID converts the NVML C char array to a Go string.
func pciBusID(pci nvml.PciInfo) string {
	buf := make([]byte, 0, len(pci.BusId))
	for _, c := range pci.BusId {
		if c == 0 {
			break
		}
		buf = append(buf, byte(c))
	}

	return string(buf)
}
