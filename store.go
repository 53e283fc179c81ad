// store.go -- durable single-file container for MPHF dictionaries
//
// A Store bundles any number of named Dict/Lookup/Filter blobs into one
// mmap-friendly file, generalizing dbwriter.go/dbreader.go's constant-DB
// design (64-byte header, siphash-checksummed records, a directory
// after the last record, SHA512-256 trailer over the header and the
// directory) from a single uint64-keyed MPHF to a directory of
// independently named string-keyed dictionaries. StoreReader mmaps the
// file up to the trailer and keeps an ARC
// cache of decoded objects so repeated Get calls against a large
// container don't repeatedly pay the CBOR/lookup-framing decode cost.
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

package mph

import (
	"bytes"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/dchest/siphash"
	arc "github.com/hashicorp/golang-lru/arc/v2"
	"github.com/opencoff/go-mmap"
)

const (
	storeMagic     = "MPHS"
	storeHeaderLen = 64
	storeTrailer   = 32 // SHA512-256
)

// writer state
type wstate int

const (
	_Aborted wstate = -1
	_Open    wstate = 0
	_Frozen  wstate = 1
)

// Section kinds recorded in a Store's directory.
const (
	KindDict = iota
	KindLookup
	KindFilter
)

func writeAll(w io.Writer, buf []byte) (int, error) {
	n, err := w.Write(buf)
	if err != nil {
		return n, err
	}
	if n != len(buf) {
		return n, errShortWrite("store", n)
	}
	return n, nil
}

type storeEntry struct {
	name   string
	kind   byte
	offset uint64 // absolute file offset of the siphash checksum
	length uint64 // payload length, excluding the checksum
}

// StoreWriter accumulates named sections and writes them, on Freeze,
// into a single checksummed file.
type StoreWriter struct {
	fd    *os.File
	fntmp string
	fn    string
	salt  []byte
	off   uint64
	names map[string]bool
	dir   []storeEntry
	state wstate
}

// NewStoreWriter opens fn.tmp.<rand> for writing; a subsequent Freeze
// renames it into place at fn.
func NewStoreWriter(fn string) (*StoreWriter, error) {
	tmp := fmt.Sprintf("%s.tmp.%d", fn, rand32())
	fd, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}

	w := &StoreWriter{
		fd:    fd,
		fntmp: tmp,
		fn:    fn,
		salt:  randbytes(16),
		off:   storeHeaderLen,
		names: make(map[string]bool),
	}

	var z [storeHeaderLen]byte
	if _, err := writeAll(fd, z[:]); err != nil {
		return nil, err
	}
	return w, nil
}

// Put adds a raw section under name. name must be unique within the
// store.
func (w *StoreWriter) Put(name string, kind byte, blob []byte) error {
	if w.state != _Open {
		return ErrFrozen
	}
	if w.names[name] {
		return ErrDuplicateKey
	}

	var o [8]byte
	binary.BigEndian.PutUint64(o[:], w.off)

	h := siphash.New(w.salt)
	h.Write(o[:])
	h.Write(blob)

	var c [8]byte
	binary.BigEndian.PutUint64(c[:], h.Sum64())

	if _, err := writeAll(w.fd, c[:]); err != nil {
		return err
	}
	if _, err := writeAll(w.fd, blob); err != nil {
		return err
	}

	w.dir = append(w.dir, storeEntry{name: name, kind: kind, offset: w.off, length: uint64(len(blob))})
	w.names[name] = true
	w.off += uint64(len(blob)) + 8
	return nil
}

// PutDict marshals d and stores it under name.
func (w *StoreWriter) PutDict(name string, d *Dict) error {
	var buf bytes.Buffer
	if _, err := d.MarshalBinary(&buf); err != nil {
		return err
	}
	return w.Put(name, KindDict, buf.Bytes())
}

// PutLookup marshals l and stores it under name.
func (w *StoreWriter) PutLookup(name string, l *Lookup) error {
	var buf bytes.Buffer
	if _, err := l.MarshalBinary(&buf); err != nil {
		return err
	}
	return w.Put(name, KindLookup, buf.Bytes())
}

// PutFilter marshals f and stores it under name.
func (w *StoreWriter) PutFilter(name string, f *Filter) error {
	var buf bytes.Buffer
	if _, err := f.MarshalBinary(&buf); err != nil {
		return err
	}
	return w.Put(name, KindFilter, buf.Bytes())
}

// Abort discards the in-progress file.
func (w *StoreWriter) Abort() error {
	if w.state != _Open {
		return ErrFrozen
	}
	return w.abort()
}

func (w *StoreWriter) abort() error {
	name := w.fd.Name()
	if err := w.fd.Close(); err != nil {
		return err
	}
	w.state = _Aborted
	return os.Remove(name)
}

// Freeze finalizes the store: writes the directory, the strong trailer
// checksum, the header, then atomically renames the file into place.
func (w *StoreWriter) Freeze() (err error) {
	defer func(e *error) {
		if *e != nil {
			w.abort()
		}
	}(&err)

	if w.state != _Open {
		return ErrFrozen
	}

	h := sha512.New512_256()
	tee := io.MultiWriter(w.fd, h)

	var ehdr [storeHeaderLen]byte
	copy(ehdr[:4], storeMagic)
	be := binary.BigEndian
	be.PutUint64(ehdr[20:28], uint64(len(w.dir)))
	dirOff := w.off
	be.PutUint64(ehdr[28:36], dirOff)
	copy(ehdr[4:20], w.salt)
	h.Write(ehdr[:])

	for _, e := range w.dir {
		var nl [4]byte
		be.PutUint32(nl[:], uint32(len(e.name)))
		if _, err = writeAll(tee, nl[:]); err != nil {
			return err
		}
		if _, err = writeAll(tee, []byte(e.name)); err != nil {
			return err
		}
		if _, err = writeAll(tee, []byte{e.kind}); err != nil {
			return err
		}
		var ol [16]byte
		be.PutUint64(ol[:8], e.offset)
		be.PutUint64(ol[8:], e.length)
		if _, err = writeAll(tee, ol[:]); err != nil {
			return err
		}
	}

	cksum := h.Sum(nil)
	if _, err = writeAll(w.fd, cksum); err != nil {
		return err
	}

	if _, err = w.fd.Seek(0, 0); err != nil {
		return err
	}
	if _, err = writeAll(w.fd, ehdr[:]); err != nil {
		return err
	}
	if err = w.fd.Sync(); err != nil {
		return err
	}
	if err = w.fd.Close(); err != nil {
		return err
	}
	if err = os.Rename(w.fntmp, w.fn); err != nil {
		return err
	}
	w.state = _Frozen
	return nil
}

// StoreReader opens a Store written by StoreWriter for querying.
type StoreReader struct {
	fd  *os.File
	fn  string
	mm  *mmap.Mapping
	buf []byte // mmap'd bytes starting at storeHeaderLen

	salt    []byte
	dirOff  uint64
	entries map[string]storeEntry

	cache *arc.ARCCache[string, any]
}

// OpenStore opens and validates a previously frozen Store. cache sizes
// the ARC cache of decoded Dict/Lookup/Filter objects (default 32).
func OpenStore(fn string, cache int) (rd *StoreReader, err error) {
	fd, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	if cache <= 0 {
		cache = 32
	}

	rd = &StoreReader{fd: fd, fn: fn}

	st, err := fd.Stat()
	if err != nil {
		return nil, err
	}
	if st.Size() < storeHeaderLen+storeTrailer {
		return nil, ErrTooSmall
	}

	var hdr [storeHeaderLen]byte
	if _, err = io.ReadFull(fd, hdr[:]); err != nil {
		return nil, err
	}

	if string(hdr[:4]) != storeMagic {
		return nil, &DecodeError{Reason: "bad store magic"}
	}
	be := binary.BigEndian
	rd.salt = append([]byte(nil), hdr[4:20]...)
	nsections := be.Uint64(hdr[20:28])
	rd.dirOff = be.Uint64(hdr[28:36])
	if rd.dirOff < storeHeaderLen || rd.dirOff >= uint64(st.Size()-storeTrailer) {
		return nil, &DecodeError{Reason: "corrupt store directory offset"}
	}

	if err = rd.verifyChecksum(hdr[:], st.Size()); err != nil {
		return nil, err
	}

	rd.cache, err = arc.NewARC[string, any](cache)
	if err != nil {
		return nil, err
	}

	// mmap offsets must be page aligned, so map from the start of the
	// file and skip the header in the slice instead.
	mapsz := st.Size() - storeTrailer
	mm := mmap.New(fd)
	mapping, err := mm.Map(mapsz, 0, mmap.PROT_READ, mmap.F_READAHEAD)
	if err != nil {
		return nil, fmt.Errorf("%s: can't mmap: %w", fn, err)
	}
	rd.mm = mapping
	rd.buf = mapping.Bytes()[storeHeaderLen:]

	if err = rd.parseDirectory(nsections); err != nil {
		return nil, err
	}
	return rd, nil
}

func (rd *StoreReader) parseDirectory(nsections uint64) error {
	rd.entries = make(map[string]storeEntry, nsections)
	buf := rd.buf[rd.dirOff-storeHeaderLen:]
	for i := uint64(0); i < nsections; i++ {
		nl, err := getU32(buf)
		if err != nil {
			return err
		}
		buf = buf[4:]
		if len(buf) < int(nl)+1+16 {
			return &DecodeError{Reason: "truncated directory entry"}
		}
		name := string(buf[:nl])
		buf = buf[nl:]
		kind := buf[0]
		buf = buf[1:]
		be := binary.BigEndian
		offset := be.Uint64(buf[:8])
		length := be.Uint64(buf[8:16])
		buf = buf[16:]
		rd.entries[name] = storeEntry{name: name, kind: kind, offset: offset, length: length}
	}
	return nil
}

// verifyChecksum recomputes the SHA512-256 trailer over exactly the
// bytes Freeze fed into it: the header, then the directory (not the
// section payloads, which carry their own per-section siphash instead).
func (rd *StoreReader) verifyChecksum(hdr []byte, sz int64) error {
	h := sha512.New512_256()
	h.Write(hdr)

	dirsz := sz - int64(rd.dirOff) - storeTrailer
	if _, err := rd.fd.Seek(int64(rd.dirOff), 0); err != nil {
		return err
	}
	nw, err := io.CopyN(h, rd.fd, dirsz)
	if err != nil {
		return fmt.Errorf("%s: metadata i/o error: %w", rd.fn, err)
	}
	if nw != dirsz {
		return fmt.Errorf("%s: partial checksum read", rd.fn)
	}

	var expsum [storeTrailer]byte
	if _, err := rd.fd.Seek(sz-storeTrailer, 0); err != nil {
		return err
	}
	if _, err := io.ReadFull(rd.fd, expsum[:]); err != nil {
		return err
	}

	csum := h.Sum(nil)
	if subtle.ConstantTimeCompare(csum, expsum[:]) != 1 {
		return fmt.Errorf("%s: checksum mismatch", rd.fn)
	}
	if _, err := rd.fd.Seek(storeHeaderLen, 0); err != nil {
		return err
	}
	return nil
}

// section returns the checksum-verified payload bytes for name.
func (rd *StoreReader) section(name string) ([]byte, byte, error) {
	e, ok := rd.entries[name]
	if !ok {
		return nil, 0, ErrNoKey
	}
	rel := e.offset - storeHeaderLen
	if rel+8+e.length > uint64(len(rd.buf)) {
		return nil, 0, &DecodeError{Reason: "section out of bounds"}
	}
	region := rd.buf[rel : rel+8+e.length]
	csum := binary.BigEndian.Uint64(region[:8])
	payload := region[8:]

	var o [8]byte
	binary.BigEndian.PutUint64(o[:], e.offset)
	h := siphash.New(rd.salt)
	h.Write(o[:])
	h.Write(payload)
	if h.Sum64() != csum {
		return nil, 0, fmt.Errorf("%s: corrupted section %q", rd.fn, name)
	}
	return payload, e.kind, nil
}

// GetDict decodes and returns the Dict stored under name, using the
// ARC cache to avoid re-decoding on repeated calls.
func (rd *StoreReader) GetDict(name string) (*Dict, error) {
	if v, ok := rd.cache.Get(name); ok {
		if d, ok := v.(*Dict); ok {
			return d, nil
		}
	}
	payload, kind, err := rd.section(name)
	if err != nil {
		return nil, err
	}
	if kind != KindDict {
		return nil, &DecodeError{Reason: "section is not a Dict"}
	}
	d, err := DecodeDict(payload)
	if err != nil {
		return nil, err
	}
	rd.cache.Add(name, d)
	return d, nil
}

// GetLookup decodes and returns the Lookup stored under name.
func (rd *StoreReader) GetLookup(name string) (*Lookup, error) {
	if v, ok := rd.cache.Get(name); ok {
		if l, ok := v.(*Lookup); ok {
			return l, nil
		}
	}
	payload, kind, err := rd.section(name)
	if err != nil {
		return nil, err
	}
	if kind != KindLookup {
		return nil, &DecodeError{Reason: "section is not a Lookup"}
	}
	l, err := DecodeLookup(payload)
	if err != nil {
		return nil, err
	}
	rd.cache.Add(name, l)
	return l, nil
}

// GetFilter decodes and returns the Filter stored under name.
func (rd *StoreReader) GetFilter(name string) (*Filter, error) {
	if v, ok := rd.cache.Get(name); ok {
		if f, ok := v.(*Filter); ok {
			return f, nil
		}
	}
	payload, kind, err := rd.section(name)
	if err != nil {
		return nil, err
	}
	if kind != KindFilter {
		return nil, &DecodeError{Reason: "section is not a Filter"}
	}
	f, err := DecodeFilter(payload)
	if err != nil {
		return nil, err
	}
	rd.cache.Add(name, f)
	return f, nil
}

// Names lists every section name in the store.
func (rd *StoreReader) Names() []string {
	out := make([]string, 0, len(rd.entries))
	for n := range rd.entries {
		out = append(out, n)
	}
	return out
}

// Close unmaps and closes the underlying file.
func (rd *StoreReader) Close() error {
	if rd.mm != nil {
		rd.mm.Unmap()
	}
	if rd.cache != nil {
		rd.cache.Purge()
	}
	rd.entries = nil
	return rd.fd.Close()
}
