// lookup_codec.go - hand-rolled wire framing for a Lookup dictionary
//
// Unlike the MPHF's CBOR-subset framing, the lookup dictionary uses
// big-endian u32 length prefixes for its top-level fields (the
// collision map and per-key hash lists inside them are varint and
// bit-packed delta encoded), matching
// dbwriter.go/dbreader.go's own big-endian header conventions rather
// than reusing the CBOR subset (the payload here is a sequence of
// variable-count nested lists, not a fixed arity tuple).
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
	"encoding/binary"
	"io"
)

const modeOneMarker = 0xFFFFFFFF

func putU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func getU32(buf []byte) (uint32, error) {
	if len(buf) < 4 {
		return 0, &DecodeError{Reason: "truncated u32 field"}
	}
	return binary.BigEndian.Uint32(buf[:4]), nil
}

// MarshalBinary encodes l as: a length-prefixed embedded MPHF, the
// ordered key list, then either the Mode 1 hybrid table plus a varint
// collision map, or the Mode 0 per-key delta-encoded hash lists.
func (l *Lookup) MarshalBinary(w io.Writer) (int, error) {
	var mphfBuf bytes.Buffer
	if _, err := l.mphf.MarshalBinary(&mphfBuf); err != nil {
		return 0, err
	}

	buf := make([]byte, 0, mphfBuf.Len()+64)
	buf = putU32(buf, uint32(mphfBuf.Len()))
	buf = append(buf, mphfBuf.Bytes()...)

	buf = putU32(buf, uint32(len(l.keys)))
	for _, k := range l.keys {
		kb := []byte(k)
		buf = putU32(buf, uint32(len(kb)))
		buf = append(buf, kb...)
	}

	if l.mode == modeHybrid {
		buf = putU32(buf, modeOneMarker)
		buf = putU32(buf, uint32(l.bitsPerKey))
		buf = putU32(buf, uint32(len(l.valueToKeyIndexes)))
		buf = append(buf, l.valueToKeyIndexes...)

		var cbuf []byte
		cbuf = putUvarint(cbuf, uint64(len(l.collisionMap)))
		for h, ks := range l.collisionMap {
			cbuf = putUvarint(cbuf, uint64(h))
			cbuf = putUvarint(cbuf, uint64(len(ks)))
			for _, k := range ks {
				cbuf = putUvarint(cbuf, uint64(k))
			}
		}
		buf = putU32(buf, uint32(len(cbuf)))
		buf = append(buf, cbuf...)
	} else {
		var hbuf []byte
		for _, hashes := range l.keyToHashes {
			hbuf = putUvarint(hbuf, uint64(len(hashes)))
			maxDelta := uint64(0)
			prev := uint32(0)
			deltas := make([]uint64, len(hashes))
			for i, h := range hashes {
				d := uint64(h - prev)
				deltas[i] = d
				if d > maxDelta {
					maxDelta = d
				}
				prev = h
			}
			width := bitWidthFor(maxDelta)
			hbuf = append(hbuf, byte(width))
			bw := newBitWriter()
			for _, d := range deltas {
				bw.writeBits(d, width)
			}
			hbuf = append(hbuf, bw.Bytes()...)
		}
		buf = putU32(buf, uint32(len(hbuf)))
		buf = append(buf, hbuf...)
	}

	n, err := w.Write(buf)
	if err != nil {
		return n, err
	}
	if n != len(buf) {
		return n, errShortWrite("Lookup.MarshalBinary", n)
	}
	return n, nil
}

// DecodeLookup parses the framing produced by MarshalBinary.
func DecodeLookup(buf []byte) (*Lookup, error) {
	mphfLen, err := getU32(buf)
	if err != nil {
		return nil, err
	}
	buf = buf[4:]
	if len(buf) < int(mphfLen) {
		return nil, &DecodeError{Reason: "truncated embedded mphf"}
	}
	mphf, err := DecodeDict(buf[:mphfLen])
	if err != nil {
		return nil, err
	}
	buf = buf[mphfLen:]

	keyCount, err := getU32(buf)
	if err != nil {
		return nil, err
	}
	buf = buf[4:]

	keys := make([]string, keyCount)
	for i := range keys {
		klen, err := getU32(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[4:]
		if len(buf) < int(klen) {
			return nil, &DecodeError{Reason: "truncated key"}
		}
		keys[i] = string(buf[:klen])
		buf = buf[klen:]
	}

	l := &Lookup{mphf: mphf, keys: keys}

	marker, err := getU32(buf)
	if err != nil {
		return nil, err
	}
	buf = buf[4:]

	if marker == modeOneMarker {
		l.mode = modeHybrid
		bitsPerKey, err := getU32(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[4:]
		l.bitsPerKey = int(bitsPerKey)

		dataLen, err := getU32(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[4:]
		if len(buf) < int(dataLen) {
			return nil, &DecodeError{Reason: "truncated valueToKeyIndexes"}
		}
		l.valueToKeyIndexes = buf[:dataLen]
		buf = buf[dataLen:]

		collisionBytes, err := getU32(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[4:]
		if len(buf) < int(collisionBytes) {
			return nil, &DecodeError{Reason: "truncated collision map"}
		}
		cbuf := buf[:collisionBytes]

		l.collisionMap = make(map[uint32][]uint32)
		count, adv := getUvarint(cbuf)
		if adv == 0 && collisionBytes != 0 {
			return nil, &DecodeError{Reason: "collision map count underrun"}
		}
		cbuf = cbuf[adv:]
		for i := uint64(0); i < count; i++ {
			h, adv := getUvarint(cbuf)
			if adv == 0 {
				return nil, &DecodeError{Reason: "collision map hash underrun"}
			}
			cbuf = cbuf[adv:]
			n, adv := getUvarint(cbuf)
			if adv == 0 {
				return nil, &DecodeError{Reason: "collision map count underrun"}
			}
			cbuf = cbuf[adv:]
			ks := make([]uint32, n)
			for j := range ks {
				v, adv := getUvarint(cbuf)
				if adv == 0 {
					return nil, &DecodeError{Reason: "collision map key index underrun"}
				}
				cbuf = cbuf[adv:]
				ks[j] = uint32(v)
			}
			l.collisionMap[uint32(h)] = ks
		}
	} else {
		hashBytesLen := marker
		if len(buf) < int(hashBytesLen) {
			return nil, &DecodeError{Reason: "truncated hash region"}
		}
		hbuf := buf[:hashBytesLen]

		l.keyToHashes = make([][]uint32, keyCount)
		for i := range l.keyToHashes {
			count, adv := getUvarint(hbuf)
			if adv == 0 {
				return nil, &DecodeError{Reason: "hash list count underrun"}
			}
			hbuf = hbuf[adv:]
			if len(hbuf) < 1 {
				return nil, &DecodeError{Reason: "missing bit width byte"}
			}
			width := uint(hbuf[0])
			hbuf = hbuf[1:]

			nbytes := int((count*uint64(width) + 7) / 8)
			if len(hbuf) < nbytes {
				return nil, &DecodeError{Reason: "truncated delta list"}
			}
			br := newBitReader(hbuf[:nbytes], width)
			hashes := make([]uint32, count)
			prev := uint32(0)
			for j := uint64(0); j < count; j++ {
				d := uint32(br.at(j))
				prev += d
				hashes[j] = prev
			}
			l.keyToHashes[i] = hashes
			hbuf = hbuf[nbytes:]
		}
		l.mode = modeSparse
		l.buildInvertedIndex()
	}

	return l, nil
}
