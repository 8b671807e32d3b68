package clock

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func monotonic() (int64, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0, errors.Wrap(err, "can't read monotonic clock")
	}
	return ts.Nano(), nil
}
