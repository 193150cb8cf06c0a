// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package popgen

import (
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

// windowOptions selects sliding windows. Size 0 analyzes each table
// as a whole; End <= Start means "through the last site".
type windowOptions struct {
	Size  float64 `toml:"window-size"`
	Step  float64 `toml:"window-step"`
	Start float64 `toml:"window-start"`
	End   float64 `toml:"window-end"`
}

func (w *windowOptions) Flags(flags *flag.FlagSet) {
	flags.Float64Var(&w.Size, "window-size", 0, "window `size` (0 = whole table)")
	flags.Float64Var(&w.Step, "window-step", 0, "window `step` (0 = window size)")
	flags.Float64Var(&w.Start, "window-start", 0, "first window starts at `position`")
	flags.Float64Var(&w.End, "window-end", 0, "no window starts at or after `position` (0 = last site)")
}

func (w *windowOptions) normalize() {
	if w.Step == 0 {
		w.Step = w.Size
	}
}

// commonFlags are accepted by every analysis command.
type commonFlags struct {
	Input   string `toml:"input"`
	Output  string `toml:"output"`
	Threads int    `toml:"threads"`
	pprof   string
	config  string
}

func (cf *commonFlags) Flags(flags *flag.FlagSet) {
	flags.StringVar(&cf.Input, "i", "-", "input `file`")
	flags.StringVar(&cf.Output, "o", "-", "output `file`")
	flags.IntVar(&cf.Threads, "threads", 1, "analyze up to `N` windows or replicates concurrently")
	flags.StringVar(&cf.pprof, "pprof", "", "serve Go profile data at http://`[addr]:port`")
	flags.StringVar(&cf.config, "config", "", "load options from toml `file` (command line flags take precedence)")
}

// parseFlags parses args into flags and then, if -config was given,
// loads cfg from the config file without overriding any flag that was
// set explicitly. It returns a nonzero exit code when the command
// should stop.
func parseFlags(flags *flag.FlagSet, args []string, cf *commonFlags, cfg interface{}) (int, error) {
	err := flags.Parse(args)
	if err == flag.ErrHelp {
		return 0, flag.ErrHelp
	} else if err != nil {
		return 2, err
	} else if flags.NArg() > 0 {
		return 2, fmt.Errorf("unexpected arguments: %q", flags.Args())
	}
	if cf.config != "" {
		if err = loadConfig(flags, cf.config, cfg); err != nil {
			return 2, err
		}
	}
	if cf.pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(cf.pprof, nil))
		}()
	}
	if cf.Threads < 1 {
		cf.Threads = 1
	}
	return 0, nil
}

func loadConfig(flags *flag.FlagSet, fnm string, cfg interface{}) error {
	explicit := map[string]string{}
	flags.Visit(func(f *flag.Flag) {
		explicit[f.Name] = f.Value.String()
	})
	md, err := toml.DecodeFile(fnm, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", fnm, err)
	}
	for _, key := range md.Undecoded() {
		log.Warnf("%s: ignoring unknown key %q", fnm, key.String())
	}
	for name, value := range explicit {
		if err := flags.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}
