package blerf

import (
	"fmt"

	"github.com/rigado/blerf/radio/cmd"
	"github.com/rigado/blerf/radio/timer"
)

// Profile is a named set of link and timing parameters for a radio.
type Profile struct {
	Channel       uint8  `json:"channel" yaml:"channel"`
	AccessAddress uint32 `json:"access_address" yaml:"access_address"`
	CRCInit       uint32 `json:"crc_init" yaml:"crc_init"`
	PHY           string `json:"phy" yaml:"phy"`

	TickRate    timer.Rate `json:"tick_rate,omitempty" yaml:"tick_rate,omitempty"`
	CounterBits uint       `json:"counter_bits,omitempty" yaml:"counter_bits,omitempty"`

	// connection timing, microseconds
	Handle     uint16 `json:"handle,omitempty" yaml:"handle,omitempty"`
	IntervalUs uint32 `json:"interval_us,omitempty" yaml:"interval_us,omitempty"`
	WindowUs   uint32 `json:"window_us,omitempty" yaml:"window_us,omitempty"`
}

// LinkPHY parses the profile's PHY, 1M when unset.
func (p Profile) LinkPHY() (cmd.PHY, error) {
	if p.PHY == "" {
		return cmd.PHY1M, nil
	}
	return cmd.ParsePHY(p.PHY)
}

// Options returns the radio options the profile sets.
func (p Profile) Options() []Option {
	var opts []Option
	if p.TickRate != 0 {
		opts = append(opts, OptTickRate(p.TickRate))
	}
	if p.CounterBits != 0 {
		opts = append(opts, OptCounterBits(p.CounterBits))
	}
	return opts
}

// Validate checks what can be checked without a radio.
func (p Profile) Validate() error {
	if _, err := p.LinkPHY(); err != nil {
		return err
	}
	if p.IntervalUs != 0 && (p.WindowUs == 0 || p.WindowUs >= p.IntervalUs) {
		return fmt.Errorf("invalid window %v for interval %v", p.WindowUs, p.IntervalUs)
	}
	return nil
}

// ProfileStore persists profiles by name.
type ProfileStore interface {
	Store(name string, p Profile, replace bool) error
	Load(name string) (Profile, error)
	Names() ([]string, error)
	Clear() error
}
