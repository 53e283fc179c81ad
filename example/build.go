// build.go -- 'build' command implementation
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
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	flag "github.com/opencoff/pflag"
	mph "github.com/opencoff/strmph"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"
)

type buildCommand struct{}

func init() {
	m := buildCommand{}
	registerCommand("build", &m)
}

// section describes one INPUT argument of the form "name:kind:file",
// e.g. "words:dict:wordlist.txt" or "synonyms:lookup:syn.csv".
type section struct {
	name string
	kind string
	file string
}

// buildCache remembers the xxh3 digest of each input file's contents once
// it has been folded into a section, keyed by output-store path plus
// section name, and skips a section whose key and digest it has already
// seen. Each build invocation creates a fresh cache and nothing is saved
// between runs, so a later run rebuilds every section; a section skipped
// as unchanged is not written to the store.
type buildCache struct {
	mu sync.Mutex
	m  map[string]uint64
}

func newBuildCache() *buildCache {
	return &buildCache{m: make(map[string]uint64)}
}

func (c *buildCache) unchanged(key string, digest uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok := c.m[key]
	return ok && old == digest
}

func (c *buildCache) remember(key string, digest uint64) {
	c.mu.Lock()
	c.m[key] = digest
	c.mu.Unlock()
}

func (m *buildCommand) run(args []string, opt *Option) (err error) {
	var level int
	var validation int
	var fpBits int

	fs := flag.NewFlagSet("build", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.IntVarP(&level, "level", "l", 5, "MPHF density level [1,10]")
	fs.IntVarP(&validation, "validation", "V", 0, "Fingerprint validation width in bits (0, 2, 4, 8, 16, 32)")
	fs.IntVarP(&fpBits, "filter-bits", "b", 8, "Filter fingerprint width in bits")
	fs.Usage = func() {
		fmt.Printf(`Usage: build [options] STORE SECTION...

where 'STORE' is the output store file and each SECTION is
"name:kind:file", kind one of dict, lookup, filter.

Options:
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	if err = fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("build: %w", err)
	}

	rest := fs.Args()
	if len(rest) < 2 {
		return fmt.Errorf("build: insufficient args")
	}

	out := rest[0]
	specs := make([]section, 0, len(rest)-1)
	for _, s := range rest[1:] {
		sec, err := parseSection(s)
		if err != nil {
			return fmt.Errorf("build: %w", err)
		}
		specs = append(specs, sec)
	}

	log := opt.Logger()
	log.Info("starting build", "store", out, "sections", len(specs))

	sw, err := mph.NewStoreWriter(out)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	cache := newBuildCache()
	type built struct {
		name string
		kind string
		blob interface{}
	}

	results := make([]built, len(specs))

	grp, _ := errgroup.WithContext(context.Background())
	for i, sec := range specs {
		i, sec := i, sec
		grp.Go(func() error {
			raw, err := os.ReadFile(sec.file)
			if err != nil {
				return fmt.Errorf("%s: %w", sec.file, err)
			}
			digest := xxh3.Hash(raw)
			cacheKey := out + ":" + sec.name
			if cache.unchanged(cacheKey, digest) {
				log.Info("section unchanged, skipping rebuild", "section", sec.name)
				return nil
			}

			log.Info("building section", "section", sec.name, "kind", sec.kind, "file", sec.file)

			switch sec.kind {
			case "dict":
				keys, err := ReadKeyStream(bytes.NewReader(raw))
				if err != nil {
					return err
				}
				d, err := mph.Build(keys, mph.BuildOptions{Level: level, ValidationMode: validation})
				if err != nil {
					return fmt.Errorf("%s: %w", sec.name, err)
				}
				results[i] = built{sec.name, sec.kind, d}
			case "lookup":
				mm, err := ReadMultiMapStream(bytes.NewReader(raw), "")
				if err != nil {
					return err
				}
				l, err := mph.BuildLookup(mm)
				if err != nil {
					return fmt.Errorf("%s: %w", sec.name, err)
				}
				results[i] = built{sec.name, sec.kind, l}
			case "filter":
				keys, err := ReadKeyStream(bytes.NewReader(raw))
				if err != nil {
					return err
				}
				f, err := mph.BuildFilter(keys, fpBits)
				if err != nil {
					return fmt.Errorf("%s: %w", sec.name, err)
				}
				results[i] = built{sec.name, sec.kind, f}
			default:
				return fmt.Errorf("%s: unknown section kind %q", sec.name, sec.kind)
			}
			cache.remember(cacheKey, digest)
			log.Info("section built", "section", sec.name)
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		sw.Abort()
		return fmt.Errorf("build: %w", err)
	}

	for _, b := range results {
		if b.blob == nil {
			continue
		}
		switch v := b.blob.(type) {
		case *mph.Dict:
			err = sw.PutDict(b.name, v)
		case *mph.Lookup:
			err = sw.PutLookup(b.name, v)
		case *mph.Filter:
			err = sw.PutFilter(b.name, v)
		}
		if err != nil {
			sw.Abort()
			return fmt.Errorf("build: %s: %w", b.name, err)
		}
	}

	if err = sw.Freeze(); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	log.Info("build complete", "store", out, "sections", len(specs))
	return nil
}

func parseSection(s string) (section, error) {
	var sec section
	n := 0
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			switch n {
			case 0:
				sec.name = s[start:i]
			case 1:
				sec.kind = s[start:i]
			}
			n++
			start = i + 1
		}
	}
	if n != 2 {
		return sec, fmt.Errorf("malformed section spec %q, want name:kind:file", s)
	}
	sec.file = s[start:]
	return sec, nil
}
