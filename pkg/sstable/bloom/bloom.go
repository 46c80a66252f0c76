// Package bloom implements the fixed-size, double-hashed bloom filter
// spec §4.5 attaches to every SST: it reports "possibly present" for
// every key it ever received, with false positives allowed and false
// negatives forbidden.
package bloom

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Filter is a fixed-size bloom filter sized from an expected entry count
// and target false-positive rate.
type Filter struct {
	n    uint64
	p    float64
	bits []byte
	m    uint64 // bit count
	k    uint64 // hash count
}

// New derives m = ceil(-n*ln(p)/ln(2)^2) bits and k = ceil(m/n*ln(2))
// hashes for expected n entries and target false-positive rate p.
func New(n uint64, p float64) *Filter {
	if n == 0 {
		n = 1
	}
	m := uint64(math.Ceil(-float64(n) * math.Log(p) / (math.Ln2 * math.Ln2)))
	if m == 0 {
		m = 1
	}
	k := uint64(math.Ceil(float64(m) / float64(n) * math.Ln2))
	if k == 0 {
		k = 1
	}
	return &Filter{
		n:    n,
		p:    p,
		bits: make([]byte, (m+7)/8),
		m:    m,
		k:    k,
	}
}

// hashes returns the filter's two independent string hashes for key.
// h2 reuses xxhash over a perturbed input rather than pulling in a
// second hash family: cheap, and the corpus already leans on xxhash for
// every non-wire-critical checksum.
func (f *Filter) hashes(key []byte) (h1, h2 uint64) {
	h1 = xxhash.Sum64(key)
	perturbed := make([]byte, len(key)+1)
	copy(perturbed, key)
	perturbed[len(key)] = 0xFF
	h2 = xxhash.Sum64(perturbed)
	if h2 == 0 {
		h2 = 1
	}
	return h1, h2
}

func (f *Filter) indices(key []byte) []uint64 {
	h1, h2 := f.hashes(key)
	idx := make([]uint64, f.k)
	for i := uint64(0); i < f.k; i++ {
		idx[i] = (h1 + i*h2) % f.m
	}
	return idx
}

// Add records key in the filter.
func (f *Filter) Add(key []byte) {
	for _, idx := range f.indices(key) {
		f.bits[idx/8] |= 1 << (idx % 8)
	}
}

// PossiblyContains reports whether key may have been added; false means
// key was definitely never added.
func (f *Filter) PossiblyContains(key []byte) bool {
	for _, idx := range f.indices(key) {
		if f.bits[idx/8]&(1<<(idx%8)) == 0 {
			return false
		}
	}
	return true
}

// Encode serializes the filter as (n u64 | p f64 | bitmap bytes),
// little-endian.
func (f *Filter) Encode() []byte {
	buf := make([]byte, 8+8+len(f.bits))
	binary.LittleEndian.PutUint64(buf[0:8], f.n)
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(f.p))
	copy(buf[16:], f.bits)
	return buf
}

// Decode parses a filter previously produced by Encode.
func Decode(data []byte) (*Filter, error) {
	if len(data) < 16 {
		return nil, fmt.Errorf("bloom: encoded data too small: %d bytes", len(data))
	}
	n := binary.LittleEndian.Uint64(data[0:8])
	p := math.Float64frombits(binary.LittleEndian.Uint64(data[8:16]))
	f := New(n, p)
	bitmapLen := len(data) - 16
	if uint64(bitmapLen) < uint64(len(f.bits)) {
		return nil, fmt.Errorf("bloom: encoded data too small for bitmap: got %d want %d", bitmapLen, len(f.bits))
	}
	copy(f.bits, data[16:16+len(f.bits)])
	return f, nil
}
