// store_test.go -- test suite for the durable multi-section container
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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreWriteReadRoundtrip(t *testing.T) {
	require := require.New(t)

	d, err := Build(keyw, BuildOptions{Level: 5, ValidationMode: Validation8})
	require.NoError(err)

	f, err := BuildFilter(keyw, 8)
	require.NoError(err)

	mm := hybridMultiMap()
	l, err := BuildLookup(mm)
	require.NoError(err)

	fn := filepath.Join(t.TempDir(), "store.db")

	sw, err := NewStoreWriter(fn)
	require.NoError(err)
	require.NoError(sw.PutDict("words", d))
	require.NoError(sw.PutFilter("bloom", f))
	require.NoError(sw.PutLookup("syns", l))
	require.NoError(sw.Freeze())

	rd, err := OpenStore(fn, 4)
	require.NoError(err)
	defer rd.Close()

	require.ElementsMatch([]string{"words", "bloom", "syns"}, rd.Names())

	d2, err := rd.GetDict("words")
	require.NoError(err)
	for _, k := range keyw {
		require.GreaterOrEqual(d2.Hash(k), 0)
	}

	f2, err := rd.GetFilter("bloom")
	require.NoError(err)
	for _, k := range keyw {
		require.True(f2.Has(k))
	}

	l2, err := rd.GetLookup("syns")
	require.NoError(err)
	require.ElementsMatch(l.Keys(), l2.Keys())
}

func TestStoreDuplicateName(t *testing.T) {
	require := require.New(t)

	d, err := Build(keyw, BuildOptions{})
	require.NoError(err)

	fn := filepath.Join(t.TempDir(), "store.db")
	sw, err := NewStoreWriter(fn)
	require.NoError(err)

	require.NoError(sw.PutDict("words", d))
	require.ErrorIs(sw.PutDict("words", d), ErrDuplicateKey)
	require.NoError(sw.Abort())
}

func TestStoreCorruptedSectionDetected(t *testing.T) {
	require := require.New(t)

	d, err := Build(keyw, BuildOptions{})
	require.NoError(err)

	fn := filepath.Join(t.TempDir(), "store.db")
	sw, err := NewStoreWriter(fn)
	require.NoError(err)
	require.NoError(sw.PutDict("words", d))
	require.NoError(sw.Freeze())

	buf, err := os.ReadFile(fn)
	require.NoError(err)
	// flip a byte inside the payload region, past the header.
	buf[storeHeaderLen+9] ^= 0xFF
	require.NoError(os.WriteFile(fn, buf, 0600))

	rd, err := OpenStore(fn, 4)
	if err != nil {
		return
	}
	defer rd.Close()
	_, err = rd.GetDict("words")
	require.Error(err)
}

func TestStoreMissingSection(t *testing.T) {
	require := require.New(t)

	d, err := Build(keyw, BuildOptions{})
	require.NoError(err)

	fn := filepath.Join(t.TempDir(), "store.db")
	sw, err := NewStoreWriter(fn)
	require.NoError(err)
	require.NoError(sw.PutDict("words", d))
	require.NoError(sw.Freeze())

	rd, err := OpenStore(fn, 4)
	require.NoError(err)
	defer rd.Close()

	_, err = rd.GetDict("nope")
	require.ErrorIs(err, ErrNoKey)
}
