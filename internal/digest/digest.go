// Package digest provides the algorithm registry and the clonable
// running hash state the search engine is built on.
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding"
	"errors"
	"fmt"
	"hash"
	"sort"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// ErrFinalized is returned when a context is updated, cloned, or
// finalized after Finalize has consumed it.
var ErrFinalized = errors.New("digest: context already finalized")

// Algorithm describes a registered digest algorithm.
type Algorithm struct {
	Name string
	Size int // digest output length in bytes
	New  func() hash.Hash
}

var registry = map[string]Algorithm{}

// Register adds an algorithm to the registry. Later registrations
// under the same name win.
func Register(a Algorithm) { registry[a.Name] = a }

// Get looks up an algorithm by name.
func Get(name string) (Algorithm, error) {
	if a, ok := registry[name]; ok {
		return a, nil
	}
	return Algorithm{}, fmt.Errorf("unknown digest algorithm: %s", name)
}

// List returns the registered algorithm names, sorted.
func List() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func init() {
	Register(Algorithm{Name: "md5", Size: md5.Size, New: md5.New})
	Register(Algorithm{Name: "sha1", Size: sha1.Size, New: sha1.New})
	Register(Algorithm{Name: "sha256", Size: sha256.Size, New: sha256.New})
	Register(Algorithm{Name: "sha512", Size: sha512.Size, New: sha512.New})
	Register(Algorithm{Name: "sha3-256", Size: 32, New: func() hash.Hash { return sha3.New256() }})
	Register(Algorithm{Name: "blake2b-256", Size: blake2b.Size256, New: func() hash.Hash {
		h, err := blake2b.New256(nil)
		if err != nil {
			// Only possible with a key longer than 64 bytes; we pass none.
			panic("digest: blake2b initialization failed: " + err.Error())
		}
		return h
	}})
	Register(Algorithm{Name: "blake3", Size: 32, New: newBlake3State})
}

// stateCloner is implemented by hash states that can duplicate
// themselves directly. States without it are cloned through an
// encoding.BinaryMarshaler round-trip, which every stdlib and
// x/crypto state in the registry supports.
type stateCloner interface {
	CloneState() (hash.Hash, error)
}

// Context is the mutable running state of one digest computation.
// A Context is created fresh, mutated only through Update, duplicated
// with Clone, and consumed by Finalize. Two live contexts never share
// backing storage: finalizing a clone leaves the source untouched.
type Context struct {
	alg       Algorithm
	state     hash.Hash
	processed uint64
	finalized bool
}

// NewContext creates a fresh context for the named algorithm with
// zero bytes processed. An unknown name is a configuration error.
func NewContext(name string) (*Context, error) {
	alg, err := Get(name)
	if err != nil {
		return nil, err
	}
	return &Context{alg: alg, state: alg.New()}, nil
}

// Algorithm returns the algorithm this context computes.
func (c *Context) Algorithm() Algorithm { return c.alg }

// Processed returns the number of bytes streamed in so far.
func (c *Context) Processed() uint64 { return c.processed }

// Update streams p into the running state. Safe to call repeatedly.
func (c *Context) Update(p []byte) error {
	if c.finalized {
		return ErrFinalized
	}
	// hash.Hash.Write never returns an error.
	c.state.Write(p)
	c.processed += uint64(len(p))
	return nil
}

// Clone returns an independent context equivalent to c at this
// moment. No further mutation of either affects the other.
func (c *Context) Clone() (*Context, error) {
	if c.finalized {
		return nil, ErrFinalized
	}
	state, err := cloneState(c.alg, c.state)
	if err != nil {
		return nil, err
	}
	return &Context{alg: c.alg, state: state, processed: c.processed}, nil
}

// Finalize consumes the context and returns the digest bytes. The
// context may not be updated, cloned, or finalized afterward.
func (c *Context) Finalize() ([]byte, error) {
	if c.finalized {
		return nil, ErrFinalized
	}
	c.finalized = true
	return c.state.Sum(nil), nil
}

func cloneState(alg Algorithm, state hash.Hash) (hash.Hash, error) {
	if sc, ok := state.(stateCloner); ok {
		return sc.CloneState()
	}
	m, ok := state.(encoding.BinaryMarshaler)
	if !ok {
		return nil, fmt.Errorf("digest %s: state is not clonable", alg.Name)
	}
	raw, err := m.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("digest %s: marshaling state: %w", alg.Name, err)
	}
	fresh := alg.New()
	u, ok := fresh.(encoding.BinaryUnmarshaler)
	if !ok {
		return nil, fmt.Errorf("digest %s: state is not clonable", alg.Name)
	}
	if err := u.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("digest %s: unmarshaling state: %w", alg.Name, err)
	}
	return fresh, nil
}
