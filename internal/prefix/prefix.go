// Package prefix parses and matches the bit-granular pattern a
// digest's leading bits must equal.
package prefix

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
)

// Target is the pattern to match: whole bytes compared exactly, plus
// an optional trailing high-nibble mask when the hex input had odd
// length.
type Target struct {
	bytes  []byte
	nibble byte // high-nibble mask, meaningful only when bits%8 != 0
	bits   int
	hex    string
}

// Parse builds a Target from a hex string. An odd-length string
// matches its final digit against the high nibble of the next digest
// byte.
func Parse(hexstr string) (Target, error) {
	if hexstr == "" {
		return Target{}, errors.New("empty hex prefix")
	}
	full := hexstr
	odd := len(hexstr)%2 == 1
	if odd {
		full = hexstr[:len(hexstr)-1]
	}
	decoded, err := hex.DecodeString(full)
	if err != nil {
		return Target{}, fmt.Errorf("malformed hex prefix %q: %w", hexstr, err)
	}
	t := Target{bytes: decoded, bits: 4 * len(hexstr), hex: hexstr}
	if odd {
		nib, err := hexNibble(hexstr[len(hexstr)-1])
		if err != nil {
			return Target{}, fmt.Errorf("malformed hex prefix %q: %w", hexstr, err)
		}
		t.nibble = nib << 4
	}
	return t, nil
}

// Bits returns the total pattern length in bits.
func (t Target) Bits() int { return t.bits }

// String returns the hex string the target was parsed from.
func (t Target) String() string { return t.hex }

// Validate rejects targets longer than the digest the active
// algorithm produces.
func (t Target) Validate(digestSize int) error {
	if t.bits > digestSize*8 {
		return fmt.Errorf("prefix %q is %d bits, digest is only %d bits", t.hex, t.bits, digestSize*8)
	}
	return nil
}

// Matches reports whether the leading bits of sum equal the target.
// Runtime depends only on the prefix length; digest bytes beyond the
// pattern are never inspected.
func (t Target) Matches(sum []byte) bool {
	n := t.bits / 8
	if len(sum) < n {
		return false
	}
	if subtle.ConstantTimeCompare(sum[:n], t.bytes) != 1 {
		return false
	}
	if t.bits%8 != 0 {
		if len(sum) <= n {
			return false
		}
		return sum[n]&0xf0 == t.nibble
	}
	return true
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	}
	return 0, fmt.Errorf("invalid hex digit %q", c)
}
