// Package memtemp reads GDDR6/GDDR6X memory junction temperatures. The
// driver does not expose them, so the register is read straight from the
// GPU's BAR0 aperture through /dev/mem, which requires root.
package memtemp

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"codeberg.org/mutker/nvidiamon/internal/errors"
	"codeberg.org/mutker/nvidiamon/internal/logger"
)

// Target identifies one device to read, keyed by its PCI identity.
type Target struct {
	DeviceID int
	BusID    string
	PCIID    uint32
}

// Reader reads memory junction temperatures for a set of devices.
// Devices that cannot be read are simply absent from the result.
type Reader interface {
	Read(targets []Target) map[int]float64
	Close() error
}

// Known memory-sensor register offsets inside BAR0, by PCI device ID.
// GA102/GA104 and AD102-AD104 boards expose the sensor at the same
// offset.
const sensorOffset = 0x0000E2A8

var supportedDevices = map[uint16]bool{
	0x2203: true, // RTX 3090 Ti
	0x2204: true, // RTX 3090
	0x2206: true, // RTX 3080
	0x2208: true, // RTX 3080 Ti
	0x2216: true, // RTX 3080 12GB
	0x2230: true, // RTX A6000
	0x2231: true, // RTX A5000
	0x2684: true, // RTX 4090
	0x2702: true, // RTX 4080 Super
	0x2704: true, // RTX 4080
	0x2782: true, // RTX 4070 Ti
}

type devmemReader struct {
	devMem   *os.File
	pageSize int64
	log      logger.Logger
}

// NewReader opens /dev/mem for BAR0 reads. It fails with a privilege
// error when not running as root.
func NewReader(log logger.Logger) (Reader, error) {
	errFactory := errors.New()

	if os.Geteuid() != 0 {
		return nil, errFactory.WithMessage(ErrPrivilegeRequired,
			"memory temperature reads require root")
	}

	devMem, err := os.OpenFile("/dev/mem", os.O_RDONLY|os.O_SYNC, 0)
	if err != nil {
		return nil, errFactory.Wrap(ErrOpenDevMem, err)
	}

	return &devmemReader{
		devMem:   devMem,
		pageSize: int64(os.Getpagesize()),
		log:      log,
	}, nil
}

func (r *devmemReader) Read(targets []Target) map[int]float64 {
	temps := make(map[int]float64, len(targets))

	for _, t := range targets {
		temp, err := r.readDevice(t)
		if err != nil {
			r.log.Debug().Err(err).Msgf("GPU %d: memory temperature unavailable", t.DeviceID)
			continue
		}
		temps[t.DeviceID] = temp
	}

	return temps
}

func (r *devmemReader) readDevice(t Target) (float64, error) {
	errFactory := errors.New()

	if !supportedDevices[DeviceModel(t.PCIID)] {
		return 0, errFactory.WithData(ErrUnsupportedDevice, t.BusID)
	}

	bar0, err := bar0Address(t.BusID)
	if err != nil {
		return 0, err
	}

	addr := bar0 + sensorOffset
	base := addr &^ (r.pageSize - 1)

	mem, err := unix.Mmap(int(r.devMem.Fd()), base, int(r.pageSize), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return 0, errFactory.Wrap(ErrReadBAR, err)
	}
	defer unix.Munmap(mem)

	off := addr - base
	raw := binary.LittleEndian.Uint32(mem[off : off+4])

	return DecodeTemperature(raw), nil
}

func (r *devmemReader) Close() error {
	return r.devMem.Close()
}

// DeviceModel extracts the 16-bit PCI device model from an NVML PCI
// device ID (device in the upper half, vendor in the lower).
func DeviceModel(pciID uint32) uint16 {
	return uint16(pciID >> 16)
}

// Supported reports whether the device model has a known sensor register.
func Supported(pciID uint32) bool {
	return supportedDevices[DeviceModel(pciID)]
}

// DecodeTemperature converts the raw sensor register value to °C.
func DecodeTemperature(raw uint32) float64 {
	return float64(raw&0x00000fff) / 0x20
}

// bar0Address reads the BAR0 physical base address from sysfs.
func bar0Address(busID string) (int64, error) {
	errFactory := errors.New()

	path := fmt.Sprintf("/sys/bus/pci/devices/%s/resource", SysfsBusID(busID))
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errFactory.Wrap(ErrReadBAR, err)
	}

	line := data
	if i := strings.IndexByte(string(data), '\n'); i >= 0 {
		line = data[:i]
	}
	fields := strings.Fields(string(line))
	if len(fields) < 1 {
		return 0, errFactory.WithData(ErrReadBAR, path)
	}

	var addr int64
	if _, err := fmt.Sscanf(fields[0], "0x%x", &addr); err != nil {
		return 0, errFactory.Wrap(ErrReadBAR, err)
	}

	return addr, nil
}

// SysfsBusID normalizes an NVML PCI bus ID (e.g. "00000000:2D:00.0") to
// the form sysfs uses ("0000:2d:00.0").
func SysfsBusID(busID string) string {
	s := strings.ToLower(busID)
	parts := strings.SplitN(s, ":", 2)
	if len(parts) == 2 && len(parts[0]) > 4 {
		parts[0] = parts[0][len(parts[0])-4:]
		return parts[0] + ":" + parts[1]
	}

	return s
}
