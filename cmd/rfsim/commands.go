package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/blerf"
	"github.com/rigado/blerf/parser"
	"github.com/rigado/blerf/radio"
	"github.com/rigado/blerf/radio/clock"
	"github.com/rigado/blerf/radio/cmd"
	"github.com/rigado/blerf/radio/connection"
	"github.com/rigado/blerf/radio/coproc"
	"github.com/rigado/blerf/radio/coproc/h4"
	"github.com/rigado/blerf/radio/evt"
	"github.com/rigado/blerf/radio/timer"
	"github.com/urfave/cli"
)

func newSimRunner(c *cli.Context) (*runner, error) {
	p, err := profile(c)
	if err != nil {
		return nil, err
	}
	return newRunner(p, blerf.GetLogger(), os.Stdout)
}

func u32(v uint32) *uint32 { return &v }

func cmdAdv(c *cli.Context) error {
	rn, err := newSimRunner(c)
	if err != nil {
		return err
	}

	// the scan request's answer is sent by the hardware, the enable_rx
	// a link layer would issue after the advertisement is swallowed
	data := c.String("data")
	ad, err := hex.DecodeString(data)
	if err != nil {
		return errors.Wrap(err, "bad adv data")
	}
	fields, err := parser.Parse(ad)
	if err != nil {
		return errors.Wrap(err, "bad adv data")
	}
	for k, v := range fields {
		fmt.Printf("adv %v: %v\n", k, v)
	}

	sc := &Scenario{Start: 1000, Steps: []Step{
		{Select: "advertise", AdvData: data, Enable: "tx"},
		{Enable: "rx"},
		{Receive: &Frame{PDU: "c30c" + "112233445566" + "a1a2a3a4a5a6", RSSI: -51}},
		{Advance: 1000},
	}}
	if err := rn.run(sc); err != nil {
		return err
	}
	return printStats(c, os.Stdout, rn.r.Stats())
}

func cmdTimeout(c *cli.Context) error {
	rn, err := newSimRunner(c)
	if err != nil {
		return err
	}

	ticks := uint32(c.Uint("ticks"))
	sc := &Scenario{Start: 1000, Steps: []Step{
		{Select: "rx", Timeout: u32(ticks), Enable: "rx"},
		{Advance: ticks * 2},
	}}
	if err := rn.run(sc); err != nil {
		return err
	}
	return printStats(c, os.Stdout, rn.r.Stats())
}

func cmdRun(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.NewExitError("usage: rfsim run <scenario.yaml>", 2)
	}

	sc, err := LoadScenario(c.Args().First())
	if err != nil {
		return err
	}
	rn, err := newRunner(sc.Profile, blerf.GetLogger(), os.Stdout)
	if err != nil {
		return err
	}
	if err := rn.run(sc); err != nil {
		return err
	}
	return printStats(c, os.Stdout, rn.r.Stats())
}

func cmdSlave(c *cli.Context) error {
	p, err := profile(c)
	if err != nil {
		return err
	}
	if p.IntervalUs == 0 {
		return fmt.Errorf("profile has no connection interval")
	}

	rn, err := newRunner(p, blerf.GetLogger(), os.Stdout)
	if err != nil {
		return err
	}
	sl, err := runSlave(rn, p, c.Int("events"), c.Int("ppm"), c.Int("miss"))
	if err != nil {
		return err
	}

	fmt.Printf("events %v missed %v lost %v\n", sl.Counter(), sl.Missed(), sl.Lost())
	return printStats(c, os.Stdout, rn.r.Stats())
}

// runSlave plays a master whose clock is off by ppm against a slave on the
// simulator for n connection events.
func runSlave(rn *runner, p blerf.Profile, n, ppm, miss int) (*connection.Slave, error) {
	rate := rn.r.Rate()
	interval := rate.Ticks(p.IntervalUs)

	sl, err := connection.NewSlave(rn.r, connection.Config{
		Handle:   p.Handle,
		Interval: interval,
		Window:   rate.Ticks(p.WindowUs),
		Logger:   rn.log,
	})
	if err != nil {
		return nil, err
	}
	rn.hook = func(e radio.Event) { sl.HandleEvent(e) }
	sl.OnEvent(func(s connection.Summary) {
		fmt.Fprintf(rn.out, "event %4d expected %10d anchor %10d anchored %-5v missed %v\n",
			s.Counter, s.Expected, s.Anchor, s.Anchored, s.Missed)
	})

	rn.s.SetNow(1000)
	master := rn.s.Now()
	sl.Establish(master)

	step := int64(interval) + int64(interval)*int64(ppm)/1000000
	for i := 1; i <= n; i++ {
		if err := sl.Schedule(); err != nil {
			if errors.Cause(err) == connection.ErrLost {
				break
			}
			return nil, err
		}

		master = uint32(int64(master) + step)
		if miss > 0 && i%miss == 0 {
			rn.s.Advance(master + interval/2 - rn.s.Now())
			continue
		}

		rn.s.Advance(master - rn.s.Now())
		rn.s.Receive([]byte{0x01, 0x00}, evt.Trailer{RSSI: -60})
		rn.s.CompleteTx()
	}
	return sl, nil
}

func cmdListen(c *cli.Context) error {
	p, err := profile(c)
	if err != nil {
		return err
	}
	phy, err := p.LinkPHY()
	if err != nil {
		return err
	}
	log := blerf.GetLogger()

	host, err := clock.NewHost(timer.Rate4MHz)
	if err != nil {
		return err
	}
	defer host.Close()

	rem, err := h4.OpenSerial(c.String("port"), c.Uint("baud"), log)
	if err != nil {
		return err
	}
	defer rem.Close()

	opts := append([]blerf.Option{blerf.OptName(c.String("port")), blerf.OptCounterBits(32)}, p.Options()...)
	opts = append(opts, blerf.OptTickRate(host.Rate()))
	r, err := radio.New(rem, host, opts...)
	if err != nil {
		return err
	}

	lk := coproc.NewLocked(r)
	rem.Attach(lk)
	host.Attach(lk)

	r.OnCompletion(func(e radio.Event) {
		if e.HasFrame {
			fmt.Printf("%10d ch=%d rssi=%d pdu=%x\n", e.Timestamp, e.Frame.Channel, e.Frame.RSSI, e.Frame.Payload)
			return
		}
		if e.Terminal {
			log.Infof("receive ended: %v", e.Status)
		}
	})

	lk.Do(func() {
		if err = r.Configure(p.Channel, p.AccessAddress, p.CRCInit, phy); err != nil {
			return
		}
		r.Select(&cmd.GenericRxOp{Continuous: true})
		r.SetContinuous(true)
		err = r.EnableRx()
	})
	if err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	var timeout <-chan time.Time
	if d := c.Duration("duration"); d > 0 {
		timeout = time.After(d)
	}
	select {
	case <-sig:
	case <-timeout:
	}

	lk.Do(r.Disable)
	// give the terminal completion a moment to come back
	time.Sleep(100 * time.Millisecond)

	var st radio.Stats
	lk.Do(func() { st = r.Stats() })
	return printStats(c, os.Stdout, st)
}

func cmdProfileStore(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.NewExitError("usage: rfsim profile store <name>", 2)
	}

	aa, err := strconv.ParseUint(c.String("aa"), 0, 32)
	if err != nil {
		return errors.Wrap(err, "bad access address")
	}
	crc, err := strconv.ParseUint(c.String("crc-init"), 0, 24)
	if err != nil {
		return errors.Wrap(err, "bad crc init")
	}

	p := blerf.Profile{
		Channel:       uint8(c.Uint("channel")),
		AccessAddress: uint32(aa),
		CRCInit:       uint32(crc),
		PHY:           c.String("phy"),
		IntervalUs:    uint32(c.Uint("interval")),
		WindowUs:      uint32(c.Uint("window")),
	}
	if err := p.Validate(); err != nil {
		return err
	}
	phy, _ := p.LinkPHY()
	if err := radio.ValidateRF(cmd.RF{Channel: p.Channel, CRCInit: p.CRCInit, PHY: phy}); err != nil {
		return err
	}
	return store(c).Store(c.Args().First(), p, c.Bool("replace"))
}

func cmdProfileShow(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.NewExitError("usage: rfsim profile show <name>", 2)
	}
	p, err := store(c).Load(c.Args().First())
	if err != nil {
		return err
	}
	fmt.Printf("%+v\n", p)
	return nil
}

func cmdProfileList(c *cli.Context) error {
	names, err := store(c).Names()
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

func cmdProfileClear(c *cli.Context) error {
	return store(c).Clear()
}
