package cache

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rigado/blerf"
	"github.com/rigado/blerf/radio/timer"
)

func TestProfileCache_Store(t *testing.T) {
	dir, err := os.MkdirTemp("", "profiles")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	defer os.RemoveAll(dir)
	fn := filepath.Join(dir, "test.cache")

	p := blerf.Profile{
		Channel:       37,
		AccessAddress: 0x8E89BED6,
		CRCInit:       0x555555,
		PHY:           "2M",
		TickRate:      timer.Rate4MHz,
		IntervalUs:    7500,
		WindowUs:      250,
	}

	c := New(fn)
	err = c.Store("adv", p, false)
	if err != nil {
		t.Fatalf("expected nil error but got %s instead", err)
	}
	if err := c.Store("adv", p, false); err == nil {
		t.Fatalf("expected error storing over existing profile")
	}
	if err := c.Store("adv", p, true); err != nil {
		t.Fatalf("replace failed: %s", err)
	}

	loaded, err := New(fn).Load("adv")
	if err != nil {
		t.Fatalf("expected to find profile in cache but did not: %s", err)
	}
	if !reflect.DeepEqual(p, loaded) {
		t.Fatalf("stored and loaded profiles are not equal")
	}

	c.Store("conn", blerf.Profile{Channel: 5}, false)
	names, err := c.Names()
	if err != nil || !reflect.DeepEqual(names, []string{"adv", "conn"}) {
		t.Fatalf("unexpected names %v %v", names, err)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("clear: %s", err)
	}
	if _, err := c.Load("adv"); err == nil {
		t.Fatalf("profile survived clear")
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("second clear: %s", err)
	}
}

func TestProfileCache_Invalid(t *testing.T) {
	c := New(filepath.Join(os.TempDir(), "never-written.cache"))
	if err := c.Store("bad", blerf.Profile{PHY: "3M"}, false); err == nil {
		t.Fatalf("expected error for bad phy")
	}
	if err := c.Store("bad", blerf.Profile{IntervalUs: 100, WindowUs: 100}, false); err == nil {
		t.Fatalf("expected error for bad window")
	}
}
