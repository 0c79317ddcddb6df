package memtemp

import "codeberg.org/mutker/nvidiamon/internal/errors"

const (
	ErrPrivilegeRequired = errors.ErrPrivilegeRequired
	ErrOpenDevMem        = errors.ErrorCode("memtemp_open_devmem_failed")
	ErrReadBAR           = errors.ErrorCode("memtemp_read_bar_failed")
	ErrUnsupportedDevice = errors.ErrorCode("memtemp_unsupported_device")
)
