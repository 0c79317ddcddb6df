package gpu

import (
	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"codeberg.org/mutker/nvidiamon/internal/errors"
)

// SetManualFanSpeed switches every fan on the device to manual control and
// writes the target speed. Manual mode must be active before the speed is
// written, so this is a two-step operation per fan.
func (d *Device) SetManualFanSpeed(speed int) error {
	errFactory := errors.New()

	if speed < 0 || speed > 100 {
		return errFactory.WithData(errors.ErrInvalidArgument, speed)
	}

	for i := 0; i < d.fanCount; i++ {
		if ret := d.handle.SetFanControlPolicy(i, nvml.FAN_POLICY_MANUAL); !IsNVMLSuccess(ret) {
			return errFactory.Wrap(ErrFanControlFailed, newNVMLError(ret))
		}
		if ret := nvml.DeviceSetFanSpeed_v2(d.handle, i, speed); !IsNVMLSuccess(ret) {
			return errFactory.Wrap(ErrSetFanSpeed, newNVMLError(ret))
		}
	}

	return nil
}

// EnableAutoFanControl hands every fan on the device back to the firmware.
func (d *Device) EnableAutoFanControl() error {
	errFactory := errors.New()

	for i := 0; i < d.fanCount; i++ {
		if ret := nvml.DeviceSetDefaultFanSpeed_v2(d.handle, i); !IsNVMLSuccess(ret) {
			return errFactory.Wrap(ErrEnableAutoFan, newNVMLError(ret))
		}
	}

	return nil
}
