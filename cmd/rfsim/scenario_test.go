package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rigado/blerf"
	"github.com/rigado/blerf/radio"
	"github.com/rigado/blerf/radio/cmd"
)

const chainScenario = `
profile:
  channel: 12
  access_address: 0x50654c3a
  crc_init: 0x123456
  phy: 2M
start: 5000
steps:
  - select: rx
    arm_timeout: 4000
    enable: rx
  - payload: "0d03010203"
    enable: tx
  - advance: 100
  - receive:
      pdu: "0100"
      rssi: -70
  - complete_tx: true
  - select: rx
    arm_timeout: 500
    enable: rx
  - advance: 1000
`

func TestScenarioChain(t *testing.T) {
	sc, err := ParseScenario([]byte(chainScenario))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sc.Profile.Channel != 12 || sc.Profile.AccessAddress != 0x50654c3a || len(sc.Steps) != 7 {
		t.Fatalf("unexpected scenario %+v", sc)
	}

	var out bytes.Buffer
	rn, err := newRunner(sc.Profile, blerf.NopLogger(), &out)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	if err := rn.run(sc); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(rn.events) != 3 {
		t.Fatalf("expected 3 events, got %v:\n%s", len(rn.events), out.String())
	}
	first := rn.events[0]
	if !first.Chained || !first.HasFrame || first.Frame.Channel != 12 || first.Frame.RSSI != -70 {
		t.Fatalf("unexpected first event %+v", first)
	}
	if rn.events[1].Status != radio.StatusOK || !rn.events[1].Terminal {
		t.Fatalf("unexpected tx event %+v", rn.events[1])
	}
	if rn.events[2].Status != radio.StatusTimeout {
		t.Fatalf("unexpected last event %+v", rn.events[2])
	}

	sent := rn.s.Sent()
	if len(sent) != 1 || !bytes.Equal(sent[0], []byte{0x0d, 0x03, 0x01, 0x02, 0x03}) {
		t.Fatalf("unexpected sent %x", sent)
	}
	if p := rn.s.Posts()[0].D; p.RF.PHY != cmd.PHY2M || p.RF.CRCInit != 0x123456 {
		t.Fatalf("profile not applied %+v", p.RF)
	}
	if !strings.Contains(out.String(), "chained") {
		t.Fatalf("output lacks chained event:\n%s", out.String())
	}
}

func TestScenarioErrors(t *testing.T) {
	if _, err := ParseScenario([]byte("profile: {phy: 5M}")); err == nil {
		t.Fatalf("expected error for bad phy")
	}
	if _, err := ParseScenario([]byte("steps: [")); err == nil {
		t.Fatalf("expected error for bad yaml")
	}

	rn, err := newRunner(defaultProfile, blerf.NopLogger(), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	bad := []Step{
		{Select: "scan"},
		{Select: "rx", Enable: "sideways"},
		{Payload: "zz"},
		{EndRx: "later"},
		{Select: "advertise", AdvData: "05010600"},
	}
	for i, st := range bad {
		if err := rn.run(&Scenario{Steps: []Step{st}}); err == nil {
			t.Fatalf("step %v: expected error", i)
		}
	}
}

func TestRunSlaveFollowsDrift(t *testing.T) {
	var out bytes.Buffer
	rn, err := newRunner(defaultProfile, blerf.NopLogger(), &out)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}

	sl, err := runSlave(rn, defaultProfile, 5, 400, 0)
	if err != nil {
		t.Fatalf("run slave: %v", err)
	}
	if sl.Counter() != 5 || sl.Missed() != 0 {
		t.Fatalf("counter %v missed %v:\n%s", sl.Counter(), sl.Missed(), out.String())
	}

	interval := rn.r.Rate().Ticks(defaultProfile.IntervalUs)
	step := interval + interval*400/1000000
	if a := sl.Anchor().Ticks; a != 1000+5*step {
		t.Fatalf("anchor %v, want %v", a, 1000+5*step)
	}
	if len(rn.s.Sent()) != 5 {
		t.Fatalf("expected 5 answers, got %v", len(rn.s.Sent()))
	}
}

func TestRunSlaveSupervision(t *testing.T) {
	rn, err := newRunner(defaultProfile, blerf.NopLogger(), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("runner: %v", err)
	}

	// master silent on every event
	sl, err := runSlave(rn, defaultProfile, 20, 0, 1)
	if err != nil {
		t.Fatalf("run slave: %v", err)
	}
	if !sl.Lost() {
		t.Fatalf("connection not lost")
	}
	if st := rn.r.Stats(); st.Timeouts == 0 {
		t.Fatalf("no guard timeouts %+v", st)
	}
}
