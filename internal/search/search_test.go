package search

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shizukutanaka/hashseek/internal/candidate"
	"github.com/shizukutanaka/hashseek/internal/digest"
	"github.com/shizukutanaka/hashseek/internal/prefix"
)

func TestMaxSearch(t *testing.T) {
	vectors := []struct {
		bits     int
		expected uint64
	}{
		{1, 1},
		{8, 255},
		{24, 1<<24 - 1},
		{63, 1<<63 - 1},
		{64, math.MaxUint64},
	}
	for _, v := range vectors {
		max, err := MaxSearch(v.bits)
		require.NoError(t, err, "bits=%d", v.bits)
		assert.Equal(t, v.expected, max, "bits=%d", v.bits)
	}

	for _, bad := range []int{0, -1, 65} {
		_, err := MaxSearch(bad)
		require.Error(t, err, "bits=%d", bad)
	}
}

func TestPlanCoversRangeContiguously(t *testing.T) {
	for _, workers := range []int{1, 2, 3, 7, 16} {
		spans := Plan(1000, workers)
		require.Len(t, spans, workers)

		assert.Equal(t, uint64(0), spans[0].Start)
		assert.Equal(t, uint64(1000), spans[len(spans)-1].End)
		for i := 1; i < len(spans); i++ {
			assert.Equal(t, spans[i-1].End, spans[i].Start, "spans must be contiguous")
		}
	}
}

func TestPlanClampsWorkersToRange(t *testing.T) {
	spans := Plan(3, 8)
	require.Len(t, spans, 3)
	assert.Equal(t, Span{Start: 2, End: 3}, spans[2])

	spans = Plan(1, 8)
	require.Len(t, spans, 1)
	assert.Equal(t, Span{Start: 0, End: 1}, spans[0])
}

func TestPlanBits64DoesNotOverflow(t *testing.T) {
	max, err := MaxSearch(64)
	require.NoError(t, err)
	spans := Plan(max, 4)
	require.Len(t, spans, 4)
	assert.Equal(t, max, spans[3].End)
	for i := 1; i < len(spans); i++ {
		assert.Equal(t, spans[i-1].End, spans[i].Start)
	}
}

func newCoordinator(t *testing.T, cfg Config, input []byte) *Coordinator {
	t.Helper()
	base, err := digest.NewContext("md5")
	require.NoError(t, err)
	require.NoError(t, base.Update(input))
	return New(cfg, base, zap.NewNop())
}

// Listing an 8-bit range of decimal candidates over an empty input
// stream: exactly one counter below 256 has an MD5 starting with a
// zero byte, and the listing must report it with that digest byte.
func TestListingFindsTheOneZeroByteMD5(t *testing.T) {
	target, err := prefix.Parse("00")
	require.NoError(t, err)

	for _, workers := range []int{1, 4} {
		coord := newCoordinator(t, Config{
			Mode:      Listing,
			Target:    target,
			Encoding:  candidate.AsciiDecimal,
			MaxSearch: 255,
			Workers:   workers,
		}, nil)

		matches, err := coord.Run(context.Background())
		require.NoError(t, err)
		require.Len(t, matches, 1, "workers=%d", workers)

		// md5("168") = 006f52e9102a8d3be2fe5614f42ba989
		assert.Equal(t, uint64(168), matches[0].Counter)
		assert.Equal(t, "006f52e9102a8d3be2fe5614f42ba989", hex.EncodeToString(matches[0].Digest))
	}
}

// The emitted candidate set must equal a direct single-threaded
// enumeration of the predicate, for the binary encoding too.
func TestListingMatchesDirectEnumeration(t *testing.T) {
	target, err := prefix.Parse("00")
	require.NoError(t, err)

	var expected []uint64
	for c := uint64(0); c < 1<<12; c++ {
		sum := md5.Sum(candidate.BinaryLE.Encode(c))
		if sum[0] == 0x00 {
			expected = append(expected, c)
		}
	}
	require.NotEmpty(t, expected)

	for _, workers := range []int{1, 4} {
		coord := newCoordinator(t, Config{
			Mode:      Listing,
			Target:    target,
			Encoding:  candidate.BinaryLE,
			MaxSearch: 1 << 12,
			Workers:   workers,
		}, nil)

		matches, err := coord.Run(context.Background())
		require.NoError(t, err)
		require.Len(t, matches, len(expected), "workers=%d", workers)
		for i, m := range matches {
			assert.Equal(t, expected[i], m.Counter, "ascending counter order, workers=%d", workers)
			assert.Equal(t, byte(0x00), m.Digest[0])
		}
	}
}

func TestListingIsDeterministicAcrossRuns(t *testing.T) {
	target, err := prefix.Parse("0")
	require.NoError(t, err)

	run := func(workers int) []Match {
		coord := newCoordinator(t, Config{
			Mode:      Listing,
			Target:    target,
			Encoding:  candidate.AsciiDecimal,
			MaxSearch: 4096,
			Workers:   workers,
		}, []byte("determinism"))
		matches, err := coord.Run(context.Background())
		require.NoError(t, err)
		return matches
	}

	first := run(1)
	second := run(8)
	require.Equal(t, first, second)
}

// The winning candidate must reproduce the target prefix when the
// input and its encoded counter are hashed together from scratch.
func TestMatchingWinnerSatisfiesPredicate(t *testing.T) {
	input := []byte("the data being protected")
	target, err := prefix.Parse("a")
	require.NoError(t, err)

	coord := newCoordinator(t, Config{
		Mode:      Matching,
		Target:    target,
		Encoding:  candidate.AsciiDecimal,
		MaxSearch: 1 << 16,
		Workers:   4,
	}, input)

	matches, err := coord.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, matches, 1, "matching mode records exactly one result")

	winner := matches[0]
	recomputed := md5.Sum(append(append([]byte{}, input...), candidate.AsciiDecimal.Encode(winner.Counter)...))
	assert.Equal(t, recomputed[:], winner.Digest)
	assert.True(t, target.Matches(recomputed[:]),
		"digest %s must start with prefix %s", hex.EncodeToString(recomputed[:]), target)
}

func TestMatchingExhaustionIsNotAFault(t *testing.T) {
	// Find a two-byte prefix absent from the tiny range so the
	// outcome is provably Exhausted.
	seen := make(map[[2]byte]bool)
	for c := uint64(0); c < 15; c++ {
		sum := md5.Sum(candidate.BinaryLE.Encode(c))
		seen[[2]byte{sum[0], sum[1]}] = true
	}
	var absent string
	for hi := 0; hi < 256 && absent == ""; hi++ {
		for lo := 0; lo < 256; lo++ {
			if !seen[[2]byte{byte(hi), byte(lo)}] {
				absent = hex.EncodeToString([]byte{byte(hi), byte(lo)})
				break
			}
		}
	}
	require.NotEmpty(t, absent)

	target, err := prefix.Parse(absent)
	require.NoError(t, err)

	coord := newCoordinator(t, Config{
		Mode:      Matching,
		Target:    target,
		Encoding:  candidate.BinaryLE,
		MaxSearch: 15,
		Workers:   2,
	}, nil)

	matches, err := coord.Run(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Empty(t, matches)
	assert.Equal(t, uint64(15), coord.Hashes(), "exhaustion means the full range was scanned")
}

func TestMatchingClaimsExactlyOnce(t *testing.T) {
	// A 4-bit prefix over a 12-bit range qualifies many candidates;
	// whichever worker claims first, there is exactly one result.
	target, err := prefix.Parse("7")
	require.NoError(t, err)

	coord := newCoordinator(t, Config{
		Mode:      Matching,
		Target:    target,
		Encoding:  candidate.BinaryLE,
		MaxSearch: 1 << 12,
		Workers:   8,
	}, nil)

	matches, err := coord.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, target.Matches(matches[0].Digest))
}

func TestRunHonorsCanceledContext(t *testing.T) {
	target, err := prefix.Parse("0000000000000000")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	coord := newCoordinator(t, Config{
		Mode:      Matching,
		Target:    target,
		Encoding:  candidate.BinaryLE,
		MaxSearch: 1 << 30,
		Workers:   2,
	}, nil)

	_, err = coord.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
