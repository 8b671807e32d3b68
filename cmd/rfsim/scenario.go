package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"
	"github.com/rigado/blerf"
	"github.com/rigado/blerf/parser"
	"github.com/rigado/blerf/radio"
	"github.com/rigado/blerf/radio/cmd"
	"github.com/rigado/blerf/radio/coproc/sim"
	"github.com/rigado/blerf/radio/evt"
	"gopkg.in/yaml.v3"
)

// Scenario is a script run against the simulated co-processor.
type Scenario struct {
	Profile blerf.Profile `yaml:"profile"`
	Start   uint32        `yaml:"start"`
	Steps   []Step        `yaml:"steps"`
}

// Step is one line of a scenario. Set fields run in declaration order.
type Step struct {
	Select     string  `yaml:"select"`
	AdvData    string  `yaml:"adv_data"`
	Payload    string  `yaml:"payload"`
	Timeout    *uint32 `yaml:"arm_timeout"`
	Capture    bool    `yaml:"arm_capture"`
	StartAt    *uint32 `yaml:"start_at"`
	Enable     string  `yaml:"enable"`
	Advance    uint32  `yaml:"advance"`
	Receive    *Frame  `yaml:"receive"`
	CompleteTx bool    `yaml:"complete_tx"`
	EndRx      string  `yaml:"end_rx"`
	HWError    bool    `yaml:"internal_error"`
	Disable    bool    `yaml:"disable"`
}

// Frame is a frame put on air by a step.
type Frame struct {
	PDU      string `yaml:"pdu"`
	RSSI     int8   `yaml:"rssi"`
	CRCError bool   `yaml:"crc_error"`
}

// LoadScenario reads a YAML scenario.
func LoadScenario(path string) (*Scenario, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "can't read scenario")
	}
	return ParseScenario(data)
}

// ParseScenario decodes a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, errors.Wrap(err, "can't parse scenario")
	}
	if err := sc.Profile.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid profile")
	}
	return &sc, nil
}

// runner drives a radio on the simulator and prints what it reports.
type runner struct {
	s   *sim.Sim
	r   *radio.Radio
	log blerf.Logger
	out io.Writer

	events []radio.Event
	hook   func(radio.Event)
}

func newRunner(p blerf.Profile, l blerf.Logger, out io.Writer) (*runner, error) {
	bits := p.CounterBits
	if bits == 0 {
		bits = radio.CounterBitsMax
	}

	rn := &runner{
		s:   sim.New(bits),
		log: l,
		out: out,
	}

	opts := append([]blerf.Option{blerf.OptLogger(l), blerf.OptName("sim")}, p.Options()...)
	r, err := radio.New(rn.s, rn.s, opts...)
	if err != nil {
		return nil, err
	}
	rn.r = r
	rn.s.Attach(r)
	r.OnCompletion(rn.handle)

	phy, err := p.LinkPHY()
	if err != nil {
		return nil, err
	}
	if err := r.Configure(p.Channel, p.AccessAddress, p.CRCInit, phy); err != nil {
		return nil, err
	}
	return rn, nil
}

func (rn *runner) handle(e radio.Event) {
	rn.events = append(rn.events, e)

	var b strings.Builder
	fmt.Fprintf(&b, "%10d %-22v %-9v", rn.s.Now(), e.Variant, e.Status)
	if e.HasFrame {
		fmt.Fprintf(&b, " pdu=%x rssi=%d ch=%d", e.Frame.Payload, e.Frame.RSSI, e.Frame.Channel)
	}
	if e.HasTimestamp {
		fmt.Fprintf(&b, " ts=%d", e.Timestamp)
	}
	if e.Terminal {
		b.WriteString(" terminal")
	}
	if e.Chained {
		b.WriteString(" chained")
	}
	fmt.Fprintln(rn.out, b.String())

	if rn.hook != nil {
		rn.hook(e)
	}
}

func (rn *runner) run(sc *Scenario) error {
	if sc.Start != 0 {
		rn.s.SetNow(sc.Start)
	}
	for i, st := range sc.Steps {
		if err := rn.step(st); err != nil {
			return errors.Wrapf(err, "step %v", i)
		}
	}
	return nil
}

func (rn *runner) step(st Step) error {
	if st.Select != "" {
		op, err := parseOp(st.Select, st.AdvData)
		if err != nil {
			return err
		}
		rn.r.Select(op)
		rn.r.SetContinuous(st.Select == "continuous_rx")
	}
	if st.Payload != "" {
		pdu, err := hex.DecodeString(st.Payload)
		if err != nil {
			return errors.Wrap(err, "bad payload")
		}
		if err := rn.r.SetTxPayload(pdu); err != nil {
			return err
		}
	}
	if st.Timeout != nil {
		rn.r.ArmTimeout(rn.s.Now() + *st.Timeout)
	}
	if st.Capture {
		rn.r.ArmCapture()
	}
	if st.StartAt != nil {
		if _, err := rn.r.StartAt(rn.s.Now()+*st.StartAt, 0, st.Enable == "tx"); err != nil {
			return err
		}
	} else {
		switch st.Enable {
		case "":
		case "rx":
			if err := rn.r.EnableRx(); err != nil {
				return err
			}
		case "tx":
			if err := rn.r.EnableTx(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown direction %q", st.Enable)
		}
	}
	if st.Advance != 0 {
		rn.s.Advance(st.Advance)
	}
	if st.Receive != nil {
		if err := rn.receive(st.Receive); err != nil {
			return err
		}
	}
	if st.CompleteTx && !rn.s.CompleteTx() {
		rn.log.Warn("no transmit running")
	}
	switch st.EndRx {
	case "":
	case "timeout":
		rn.s.EndRx(cmd.DoneRxTimeout)
	case "nosync":
		rn.s.EndRx(cmd.DoneNoSync)
	default:
		return fmt.Errorf("unknown end %q", st.EndRx)
	}
	if st.HWError {
		rn.s.InternalError()
	}
	if st.Disable {
		rn.r.Disable()
	}
	rn.s.Flush()
	return nil
}

func (rn *runner) receive(f *Frame) error {
	pdu, err := hex.DecodeString(f.PDU)
	if err != nil {
		return errors.Wrap(err, "bad pdu")
	}
	t := evt.Trailer{RSSI: f.RSSI}
	if f.CRCError {
		t.Status = evt.StatusCRCErr
	}
	if !rn.s.Receive(pdu, t) {
		rn.log.Warn("frame not received")
	}
	return nil
}

func parseOp(s, advData string) (cmd.Op, error) {
	switch s {
	case "advertise":
		ad := []byte{0x02, 0x01, 0x06}
		if advData != "" {
			var err error
			if ad, err = hex.DecodeString(advData); err != nil {
				return nil, errors.Wrap(err, "bad adv data")
			}
		}
		if err := parser.Validate(ad); err != nil {
			return nil, errors.Wrap(err, "bad adv data")
		}
		return &cmd.AdvertiseOp{AdvData: ad}, nil
	case "rx", "generic_rx":
		return &cmd.GenericRxOp{}, nil
	case "continuous_rx":
		return &cmd.GenericRxOp{Continuous: true}, nil
	case "slave":
		return &cmd.SlaveEventOp{}, nil
	case "nop":
		return &cmd.NopOp{}, nil
	}
	return nil, fmt.Errorf("unknown operation %q", s)
}
