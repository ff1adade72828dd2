// Package search drives the brute-force enumeration of the counter
// space: it partitions the range, runs a fixed worker pool over the
// partitions, and resolves a single winning candidate.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/shizukutanaka/hashseek/internal/candidate"
	"github.com/shizukutanaka/hashseek/internal/digest"
	"github.com/shizukutanaka/hashseek/internal/prefix"
)

// ErrExhausted signals that the full range was scanned without a
// qualifying candidate in matching mode. It is a normal outcome, not
// a fault: callers translate it into an exit code, never a trace.
var ErrExhausted = errors.New("search space exhausted without a match")

// ctxCheckEvery is how many candidates a worker processes between
// context checks. The loop itself never blocks, so this is the
// cancellation latency knob.
const ctxCheckEvery = 8192

// Mode selects what happens when candidates qualify.
type Mode int

const (
	// Matching stops at the first qualifying candidate.
	Matching Mode = iota
	// Listing enumerates every qualifying candidate and never
	// short-circuits.
	Listing
)

// Span is a half-open interval [Start, End) of counters owned by one
// worker.
type Span struct {
	Start uint64
	End   uint64
}

// MaxSearch returns the exclusive upper bound of the counter range
// for a search-space exponent: 2^bits - 1, or 2^64 - 1 at bits=64.
func MaxSearch(bits int) (uint64, error) {
	if bits < 1 || bits > 64 {
		return 0, fmt.Errorf("invalid number of bits: %d (want 1..64)", bits)
	}
	if bits == 64 {
		return math.MaxUint64, nil
	}
	return (uint64(1) << uint(bits)) - 1, nil
}

// Plan splits [0, max) into contiguous, near-equal spans, one per
// worker, with the remainder on the last span. It is pure: sequential
// execution is simply a one-span plan.
func Plan(max uint64, workers int) []Span {
	if workers < 1 {
		workers = 1
	}
	if uint64(workers) > max {
		workers = int(max)
		if workers < 1 {
			workers = 1
		}
	}
	chunk := max / uint64(workers)
	spans := make([]Span, workers)
	var start uint64
	for i := range spans {
		end := start + chunk
		if i == len(spans)-1 {
			end = max
		}
		spans[i] = Span{Start: start, End: end}
		start = end
	}
	return spans
}

// Match is one qualifying candidate and the digest it produced.
type Match struct {
	Counter uint64
	Digest  []byte
}

// Config parameterizes a search run.
type Config struct {
	Mode      Mode
	Target    prefix.Target
	Encoding  candidate.Encoding
	MaxSearch uint64
	// Workers is the fixed pool size; 0 means one per logical CPU.
	Workers int
	// StatsEvery is the hash-rate report interval; 0 disables it.
	StatsEvery time.Duration
}

// Coordinator enumerates the counter space against a sealed base
// digest context. The base and target are read-only once Run starts;
// each worker clones the base per candidate, so no mutable state is
// shared across workers except the claim slot.
type Coordinator struct {
	cfg    Config
	base   *digest.Context
	logger *zap.Logger

	hashes  uint64 // atomic
	stopped uint32 // atomic, set once a claim succeeds
	claimed uint32 // atomic CAS guard for the result slot

	mu     sync.Mutex
	winner *Match
}

// New creates a coordinator over base. The base context must not be
// mutated by the caller after this point.
func New(cfg Config, base *digest.Context, logger *zap.Logger) *Coordinator {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{cfg: cfg, base: base, logger: logger}
}

// Hashes returns the number of candidates examined so far.
func (c *Coordinator) Hashes() uint64 { return atomic.LoadUint64(&c.hashes) }

// Run enumerates [0, MaxSearch). In Matching mode it returns the
// single claimed match, or ErrExhausted. In Listing mode it returns
// every qualifying candidate in ascending counter order.
func (c *Coordinator) Run(ctx context.Context) ([]Match, error) {
	spans := Plan(c.cfg.MaxSearch, c.cfg.Workers)
	c.logger.Info("beginning search",
		zap.String("range", fmt.Sprintf("0 to %#x", c.cfg.MaxSearch)),
		zap.Int("workers", len(spans)),
		zap.String("target", c.cfg.Target.String()),
		zap.Int("target_bits", c.cfg.Target.Bits()),
		zap.Stringer("encoding", c.cfg.Encoding),
	)

	statsDone := make(chan struct{})
	if c.cfg.StatsEvery > 0 {
		go c.statsReporter(ctx, statsDone)
	}

	results := make([][]Match, len(spans))
	errs := make([]error, len(spans))
	var wg sync.WaitGroup
	for i, span := range spans {
		wg.Add(1)
		go func(i int, span Span) {
			defer wg.Done()
			results[i], errs[i] = c.runSpan(ctx, span)
		}(i, span)
	}
	wg.Wait()
	close(statsDone)

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil && c.loadWinner() == nil {
		return nil, err
	}

	if c.cfg.Mode == Matching {
		w := c.loadWinner()
		if w == nil {
			return nil, ErrExhausted
		}
		return []Match{*w}, nil
	}

	var merged []Match
	for _, local := range results {
		merged = append(merged, local...)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Counter < merged[j].Counter })
	return merged, nil
}

// runSpan is the per-worker hot loop: clone, encode, update,
// finalize, match. Workers observe the stop flag between candidates
// and finish their current candidate only.
func (c *Coordinator) runSpan(ctx context.Context, span Span) ([]Match, error) {
	var local []Match
	buf := make([]byte, 0, candidate.MaxEncodedLen)
	for counter := span.Start; counter < span.End; counter++ {
		if atomic.LoadUint32(&c.stopped) == 1 {
			return local, nil
		}
		if (counter-span.Start)%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return local, nil
			}
		}

		clone, err := c.base.Clone()
		if err != nil {
			return local, fmt.Errorf("cloning base context: %w", err)
		}
		buf = c.cfg.Encoding.Append(buf[:0], counter)
		if err := clone.Update(buf); err != nil {
			return local, err
		}
		sum, err := clone.Finalize()
		if err != nil {
			return local, err
		}
		atomic.AddUint64(&c.hashes, 1)

		if !c.cfg.Target.Matches(sum) {
			continue
		}
		if c.cfg.Mode == Listing {
			local = append(local, Match{Counter: counter, Digest: sum})
			continue
		}
		c.claim(Match{Counter: counter, Digest: sum})
		return local, nil
	}
	return local, nil
}

// claim records the winning match. Exactly one caller per run
// succeeds; the rest observe the stop flag and wind down.
func (c *Coordinator) claim(m Match) bool {
	if !atomic.CompareAndSwapUint32(&c.claimed, 0, 1) {
		return false
	}
	c.mu.Lock()
	c.winner = &m
	c.mu.Unlock()
	atomic.StoreUint32(&c.stopped, 1)
	return true
}

func (c *Coordinator) loadWinner() *Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.winner
}

// statsReporter logs the hash rate periodically while the workers
// run.
func (c *Coordinator) statsReporter(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.StatsEvery)
	defer ticker.Stop()

	var last uint64
	lastTime := time.Now()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			cur := atomic.LoadUint64(&c.hashes)
			rate := float64(cur-last) / now.Sub(lastTime).Seconds()
			c.logger.Info("search progress",
				zap.Uint64("hashes", cur),
				zap.String("rate", humanize.SI(rate, "H/s")),
			)
			last, lastTime = cur, now
		}
	}
}
