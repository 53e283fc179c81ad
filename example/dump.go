// dump.go -- 'dump' command implementation
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

	flag "github.com/opencoff/pflag"
	mph "github.com/opencoff/strmph"
)

type dumpCommand struct{}

func init() {
	m := dumpCommand{}
	registerCommand("dump", &m)
}

func (m *dumpCommand) run(args []string, opt *Option) (err error) {
	var keys bool

	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.BoolVarP(&keys, "keys", "k", false, "Also dump the keys held by each lookup section")
	fs.Usage = func() {
		fmt.Printf(`Usage: dump [options] STORE

where 'STORE' is the name of a mph store file

Options:
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	if err = fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("dump: %w", err)
	}

	args = fs.Args()
	if len(args) < 1 {
		return fmt.Errorf("dump: insufficient args")
	}

	fn := args[0]
	st, err := mph.OpenStore(fn, 32)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	defer st.Close()

	names := st.Names()
	sort.Strings(names)

	for _, name := range names {
		if d, err := st.GetDict(name); err == nil {
			fmt.Printf("%s: dict, %d keys, %d buckets, validation=%d\n",
				name, d.Len(), d.Buckets(), d.ValidationMode())
			continue
		}
		if l, err := st.GetLookup(name); err == nil {
			ks := l.Keys()
			fmt.Printf("%s: lookup, %d keys\n", name, len(ks))
			if keys {
				for _, k := range ks {
					fmt.Printf("  %s\n", k)
				}
			}
			continue
		}
		if _, err := st.GetFilter(name); err == nil {
			fmt.Printf("%s: filter\n", name)
			continue
		}
		fmt.Printf("%s: unreadable section\n", name)
	}
	return nil
}
