// cmds.go -- commands abstraction
//
// (c) Sudhi Herle 2018
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
)

type command interface {
	run(args []string, opt *Option) error
}

var cmds = struct {
	sync.Mutex
	m map[string]command
}{
	m: make(map[string]command),
}

func registerCommand(nm string, cmd command) {
	cmds.Lock()
	if _, ok := cmds.m[nm]; ok {
		panic(fmt.Sprintf("%s already registered", nm))
	}
	cmds.m[nm] = cmd
	cmds.Unlock()
}

func runCommand(args []string, o *Option) error {
	nm := args[0]

	cmds.Lock()
	defer cmds.Unlock()
	cmd, ok := cmds.m[nm]
	if !ok {
		return fmt.Errorf("unknown command %s", nm)
	}

	return cmd.run(args, o)
}

type Option struct {
	verbose bool
	log     *slog.Logger
}

func (o *Option) Printf(s string, v ...interface{}) {
	if o.verbose {
		fmt.Printf(s, v...)
	}
}

// Logger lazily builds a text-handler slog.Logger gated by -V/--verbose,
// used by the subcommands that report multi-step progress (build's
// per-section fan-out, query's section auto-detection).
func (o *Option) Logger() *slog.Logger {
	if o.log == nil {
		lvl := slog.LevelWarn
		if o.verbose {
			lvl = slog.LevelInfo
		}
		o.log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	}
	return o.log
}
