// Package report formats and emits search results in the two
// operating modes.
package report

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/shizukutanaka/hashseek/internal/candidate"
	"github.com/shizukutanaka/hashseek/internal/search"
)

// Reporter owns the primary output (the matching file or the listing)
// and the human-readable diagnostic stream.
type Reporter struct {
	out  *bufio.Writer
	diag io.Writer
}

// New wraps out in a buffered writer; bufio redrives short writes, so
// a successful Flush means every byte was delivered.
func New(out io.Writer, diag io.Writer) *Reporter {
	return &Reporter{out: bufio.NewWriter(out), diag: diag}
}

// Primary exposes the buffered primary output so the Reading phase
// can tee the input through the same writer the winning suffix will
// land on.
func (r *Reporter) Primary() io.Writer { return r.out }

// BaseDigest announces the digest of the input alone.
func (r *Reporter) BaseDigest(sum []byte) {
	fmt.Fprintf(r.diag, "beginning search (original hash = %s)\n", hex.EncodeToString(sum))
}

// Banner announces the range about to be searched.
func (r *Reporter) Banner(max uint64) {
	fmt.Fprintf(r.diag, "searching 0 to %#x ...\n", max)
}

// Found completes the matching file: the winning candidate's raw
// encoded bytes go to the primary output after the tee'd input, and
// the primary output is flushed fully before returning. Diagnostics
// go to the diagnostic stream.
func (r *Reporter) Found(m search.Match, enc candidate.Encoding) error {
	fmt.Fprintf(r.diag, "found match!\nnew hash is %s\n", hex.EncodeToString(m.Digest))
	if _, err := r.out.Write(enc.Encode(m.Counter)); err != nil {
		return fmt.Errorf("writing candidate: %w", err)
	}
	return r.Flush()
}

// NoMatch reports exhaustion in matching mode. Nothing further is
// written to the primary output beyond what the tee already emitted.
func (r *Reporter) NoMatch() error {
	fmt.Fprintln(r.diag, "no match found.")
	return r.Flush()
}

// List emits one line per qualifying candidate on the primary output:
// "<hex digest> <encoding-tag> <counter>".
func (r *Reporter) List(matches []search.Match, enc candidate.Encoding) error {
	for _, m := range matches {
		if _, err := fmt.Fprintf(r.out, "%s %s %d\n", hex.EncodeToString(m.Digest), enc, m.Counter); err != nil {
			return fmt.Errorf("writing listing: %w", err)
		}
	}
	return r.Flush()
}

// Flush delivers all buffered primary output.
func (r *Reporter) Flush() error {
	if err := r.out.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	return nil
}
