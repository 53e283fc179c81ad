// query.go -- 'query' command implementation
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

	flag "github.com/opencoff/pflag"
	mph "github.com/opencoff/strmph"
)

type queryCommand struct{}

func init() {
	m := queryCommand{}
	registerCommand("query", &m)
}

func (m *queryCommand) run(args []string, opt *Option) (err error) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.Usage = func() {
		fmt.Printf(`Usage: query [options] STORE NAME KEY

where 'STORE' is a store file, 'NAME' names a section within it and
'KEY' is the key/value to query. The section's kind (dict, lookup or
filter) is auto-detected.

Options:
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	if err = fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("query: %w", err)
	}

	rest := fs.Args()
	if len(rest) < 3 {
		return fmt.Errorf("query: insufficient args")
	}

	fn, name, key := rest[0], rest[1], rest[2]
	log := opt.Logger()

	st, err := mph.OpenStore(fn, 32)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer st.Close()

	if d, derr := st.GetDict(name); derr == nil {
		log.Info("resolved section as dict", "section", name)
		h := d.Hash(key)
		if h < 0 {
			fmt.Printf("%s: not found\n", key)
			return nil
		}
		fmt.Printf("%d\n", h)
		return nil
	}

	if l, lerr := st.GetLookup(name); lerr == nil {
		log.Info("resolved section as lookup", "section", name)
		vals := l.QueryAll(key)
		if len(vals) == 0 {
			fmt.Printf("%s: not found\n", key)
			return nil
		}
		for _, v := range vals {
			fmt.Println(v)
		}
		return nil
	}

	if f, ferr := st.GetFilter(name); ferr == nil {
		log.Info("resolved section as filter", "section", name)
		fmt.Println(f.Has(key))
		return nil
	}

	return fmt.Errorf("query: %s: no such section", name)
}
