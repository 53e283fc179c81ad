// fsck.go -- 'fsck' command implementation
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
	"os"
	"sort"

	mph "github.com/opencoff/strmph"
	flag "github.com/opencoff/pflag"
)

type fsckCommand struct{}

func init() {
	m := fsckCommand{}
	registerCommand("fsck", &m)
}

// run opens the store, which itself verifies the trailer checksum over
// the header and directory, then forces a checksum check and decode of
// every section to catch any corruption that OpenStore's check wouldn't.
func (m *fsckCommand) run(args []string, opt *Option) (err error) {
	fs := flag.NewFlagSet("fsck", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.Usage = func() {
		fmt.Printf(`Usage: fsck [options] STORE

where 'STORE' is the name of a mph store file

Options:
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	if err = fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("fsck: %w", err)
	}

	args = fs.Args()
	if len(args) < 1 {
		return fmt.Errorf("fsck: insufficient args")
	}

	fn := args[0]
	st, err := mph.OpenStore(fn, 32)
	if err != nil {
		return fmt.Errorf("fsck: %s: %w", fn, err)
	}
	defer st.Close()

	names := st.Names()
	sort.Strings(names)

	var bad int
	for _, name := range names {
		_, derr := st.GetDict(name)
		_, lerr := st.GetLookup(name)
		_, ferr := st.GetFilter(name)
		if derr != nil && lerr != nil && ferr != nil {
			bad++
			warn("%s: section %q is unreadable", fn, name)
			continue
		}
		opt.Printf("%s: ok\n", name)
	}

	if bad > 0 {
		return fmt.Errorf("fsck: %d bad section(s)", bad)
	}
	fmt.Printf("%s: OK, %d section(s)\n", fn, len(names))
	return nil
}
