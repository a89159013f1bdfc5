// Package dslcache is a content-addressed cache of compiled output, keyed
// by a hash of the source text and the configuration that produced it.
// dslc's Pipeline.Compile writes an entry after each successful build; it
// does not look an entry up before compiling, so a repeated compile of an
// unchanged (source, config) pair still runs every stage.
package dslcache

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dekarrin/rezi"
	"golang.org/x/crypto/blake2b"

	"github.com/dekarrin/dslc/internal/dslconfig"
)

// Key identifies one cached compilation by the blake2b-256 digest of its
// source text and configuration.
type Key [blake2b.Size256]byte

// String returns the hex form of k, used as its on-disk file name.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// NewKey hashes source together with the subset of cfg that affects
// codegen output. OutputPath and Verbose don't change what's produced, so
// they're excluded; a config that differs only in those fields still hits
// the same cache entry.
func NewKey(source []byte, cfg dslconfig.Config) Key {
	h, err := blake2b.New256(nil)
	if err != nil {
		// New256 with a nil key only fails for a bad key size, which nil
		// never triggers.
		panic(err)
	}
	h.Write(source)
	fmt.Fprintf(h, "target=%s\nopt=%d\nunroll=%d\nprofile=%s\ndebug=%t\nmintc=%s\n",
		cfg.Target, cfg.OptimizationLevel, cfg.UnrollFactor, cfg.ProfilePath,
		cfg.EmitDebugInfo, cfg.MinToolchainVersion)

	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Entry is the cached payload for one Key: the finished code and data
// sections, the entry point, and the pending data relocations codegen
// produced — the same information codegen.Artifact carries, stored
// independently of that package so this cache doesn't import codegen just
// to round-trip its struct.
type Entry struct {
	Code             []byte
	Data             []byte
	EntryPoint       int
	RelocCodeOffsets []int
	RelocDataOffsets []int
}

// MarshalBinary implements encoding.BinaryMarshaler for rezi.EncBinary.
func (e Entry) MarshalBinary() ([]byte, error) {
	var data []byte
	data = append(data, encBinaryBytes(e.Code)...)
	data = append(data, encBinaryBytes(e.Data)...)
	data = append(data, encBinaryInt(e.EntryPoint)...)
	data = append(data, encBinaryIntSlice(e.RelocCodeOffsets)...)
	data = append(data, encBinaryIntSlice(e.RelocDataOffsets)...)
	return data, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for rezi.DecBinary.
func (e *Entry) UnmarshalBinary(data []byte) error {
	var n int
	var err error

	e.Code, n, err = decBinaryBytes(data)
	if err != nil {
		return fmt.Errorf("code: %w", err)
	}
	data = data[n:]

	e.Data, n, err = decBinaryBytes(data)
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	data = data[n:]

	e.EntryPoint, n, err = decBinaryInt(data)
	if err != nil {
		return fmt.Errorf("entry point: %w", err)
	}
	data = data[n:]

	e.RelocCodeOffsets, n, err = decBinaryIntSlice(data)
	if err != nil {
		return fmt.Errorf("reloc code offsets: %w", err)
	}
	data = data[n:]

	e.RelocDataOffsets, _, err = decBinaryIntSlice(data)
	if err != nil {
		return fmt.Errorf("reloc data offsets: %w", err)
	}

	return nil
}

// Cache is a directory of Entry files named by their Key's hex digest.
type Cache struct {
	dir string
}

// Open returns a Cache rooted at dir, creating dir if it doesn't exist.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("open cache dir %s: %w", dir, err)
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) path(k Key) string {
	return filepath.Join(c.dir, k.String()+".rezi")
}

// Get loads the entry for k, returning ok=false if nothing is cached for
// it yet.
func (c *Cache) Get(k Key) (entry Entry, ok bool, err error) {
	raw, err := os.ReadFile(c.path(k))
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("read cache entry %s: %w", k, err)
	}

	n, err := rezi.DecBinary(raw, &entry)
	if err != nil {
		return Entry{}, false, fmt.Errorf("decode cache entry %s: %w", k, err)
	}
	if n != len(raw) {
		return Entry{}, false, fmt.Errorf("decode cache entry %s: consumed %d/%d bytes", k, n, len(raw))
	}
	return entry, true, nil
}

// Put stores entry under k, overwriting any existing entry.
func (c *Cache) Put(k Key, entry Entry) error {
	raw := rezi.EncBinary(entry)
	if err := os.WriteFile(c.path(k), raw, 0644); err != nil {
		return fmt.Errorf("write cache entry %s: %w", k, err)
	}
	return nil
}
