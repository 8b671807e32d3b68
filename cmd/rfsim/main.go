// Command rfsim exercises the radio engine, either against the built-in
// co-processor simulator or a co-processor on a serial port.
package main

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rigado/blerf"
	"github.com/rigado/blerf/cache"
	"github.com/rigado/blerf/radio"
	"github.com/urfave/cli"
)

var defaultProfile = blerf.Profile{
	Channel:       37,
	AccessAddress: 0x8E89BED6,
	CRCInit:       0x555555,
	PHY:           "1M",
	IntervalUs:    7500,
	WindowUs:      150,
}

func main() {
	app := cli.NewApp()
	app.Name = "rfsim"
	app.Usage = "drive the BLE radio engine"
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "debug", Usage: "log everything"},
		cli.BoolFlag{Name: "json", Usage: "print stats as JSON"},
		cli.StringFlag{Name: "profiles", Value: "rfsim.profiles", Usage: "profile store file"},
		cli.StringFlag{Name: "profile", Usage: "named profile to use instead of the defaults"},
	}
	app.Before = func(c *cli.Context) error {
		if c.Bool("debug") {
			blerf.SetLogLevelMax()
		}
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:  "adv",
			Usage: "advertise and answer a scan request",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "data", Value: "0201060609726673696d", Usage: "advertising data, hex"},
			},
			Action: cmdAdv,
		},
		{
			Name:  "slave",
			Usage: "follow a drifting master through connection events",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "events", Value: 8},
				cli.IntFlag{Name: "ppm", Value: 50, Usage: "master clock drift"},
				cli.IntFlag{Name: "miss", Usage: "master stays silent every n-th event"},
			},
			Action: cmdSlave,
		},
		{
			Name:  "timeout",
			Usage: "let the too-late guard end a receive",
			Flags: []cli.Flag{
				cli.UintFlag{Name: "ticks", Value: 1000},
			},
			Action: cmdTimeout,
		},
		{
			Name:      "run",
			Usage:     "run a YAML scenario on the simulator",
			ArgsUsage: "<scenario.yaml>",
			Action:    cmdRun,
		},
		{
			Name:  "listen",
			Usage: "receive continuously on a serial co-processor",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "port", Value: "/dev/ttyACM0"},
				cli.UintFlag{Name: "baud", Value: 1000000},
				cli.DurationFlag{Name: "duration", Usage: "stop after, 0 for Ctrl-C"},
			},
			Action: cmdListen,
		},
		{
			Name:  "profile",
			Usage: "manage stored profiles",
			Subcommands: []cli.Command{
				{
					Name:      "store",
					ArgsUsage: "<name>",
					Flags: []cli.Flag{
						cli.UintFlag{Name: "channel", Value: uint(defaultProfile.Channel)},
						cli.StringFlag{Name: "aa", Value: fmt.Sprintf("0x%08X", defaultProfile.AccessAddress)},
						cli.StringFlag{Name: "crc-init", Value: fmt.Sprintf("0x%06X", defaultProfile.CRCInit)},
						cli.StringFlag{Name: "phy", Value: defaultProfile.PHY},
						cli.UintFlag{Name: "interval", Value: uint(defaultProfile.IntervalUs), Usage: "µs"},
						cli.UintFlag{Name: "window", Value: uint(defaultProfile.WindowUs), Usage: "µs"},
						cli.BoolFlag{Name: "replace"},
					},
					Action: cmdProfileStore,
				},
				{
					Name:      "show",
					ArgsUsage: "<name>",
					Action:    cmdProfileShow,
				},
				{
					Name:   "list",
					Action: cmdProfileList,
				},
				{
					Name:   "clear",
					Action: cmdProfileClear,
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func store(c *cli.Context) blerf.ProfileStore {
	return cache.New(c.GlobalString("profiles"))
}

// profile returns the profile selected on the command line.
func profile(c *cli.Context) (blerf.Profile, error) {
	name := c.GlobalString("profile")
	if name == "" {
		return defaultProfile, nil
	}
	p, err := store(c).Load(name)
	if err != nil {
		return p, errors.Wrap(err, "can't load profile")
	}
	return p, nil
}

func printStats(c *cli.Context, w io.Writer, st radio.Stats) error {
	if !c.GlobalBool("json") {
		fmt.Fprintf(w, "%+v\n", st)
		return nil
	}

	b, err := jsoniter.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(b))
	return nil
}
