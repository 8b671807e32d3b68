package h4

import (
	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
	"github.com/rigado/blerf"
)

// OpenSerial opens port at baud and starts a Remote on it.
func OpenSerial(port string, baud uint, l blerf.Logger) (*Remote, error) {
	opts := serial.OpenOptions{
		PortName:        port,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		ParityMode:      serial.PARITY_NONE,
		MinimumReadSize: 0,
		// ms, keeps reads returning so Close is noticed
		InterCharacterTimeout: 100,
		RTSCTSFlowControl:     true,
	}

	sp, err := serial.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %v", port)
	}

	r := New(sp, l)
	if err := r.Reset(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}
