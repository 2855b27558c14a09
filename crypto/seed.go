package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// OrderingSeed derives the execution-ordering seed for one batch.
// Secrets must be supplied in commitment-ID ascending order; the caller is
// responsible for that ordering. The seed is unknowable before the reveal
// window closes because it depends on every revealed secret.
func OrderingSeed(secrets []Secret) Hash {
	h := sha256.New()
	for _, s := range secrets {
		h.Write(s[:])
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// SeedStream expands an ordering seed into an unbounded deterministic byte
// stream using HKDF-SHA256. A single HKDF instantiation yields at most 255
// output blocks, so the stream re-keys with an incrementing chunk counter in
// the info string whenever the current instantiation is drained. The first
// chunk is bitwise identical to a plain HKDF expansion of the seed.
func SeedStream(seed Hash, info string) io.Reader {
	return &seedStream{
		seed: seed,
		info: info,
		r:    hkdf.New(sha256.New, seed[:], nil, []byte(info)),
	}
}

type seedStream struct {
	seed  Hash
	info  string
	chunk uint32
	r     io.Reader
}

// Read never fails: draining one HKDF instantiation rolls over to the next
// chunk.
func (s *seedStream) Read(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := s.r.Read(p[total:])
		total += n
		if err != nil {
			s.chunk++
			info := fmt.Sprintf("%s/%d", s.info, s.chunk)
			s.r = hkdf.New(sha256.New, s.seed[:], nil, []byte(info))
		}
	}
	return total, nil
}

// StreamUint64 reads the next big-endian uint64 from a seed stream.
func StreamUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("reading seed stream: %w", err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}
