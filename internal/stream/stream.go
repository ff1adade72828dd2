// Package stream implements the Reading phase: the input is consumed
// once, block by block, into the shared base digest context, and in
// matching mode tee'd verbatim to the primary output.
package stream

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/shizukutanaka/hashseek/internal/digest"
)

// BlockSize is the default read block size, matching the historical
// tool's 16 KiB blocks.
const BlockSize = 16384

// progressEvery is the number of blocks between progress markers on
// the diagnostic stream.
const progressEvery = 256

// Options controls a Consume pass.
type Options struct {
	// Echo, when non-nil, receives every input block verbatim
	// (matching mode). The writer's error contract covers short
	// writes: anything buffered must be redriven by the writer.
	Echo io.Writer

	// Diag, when non-nil, receives the reading banner and progress
	// markers. Markers are suppressed when the input is an
	// interactive terminal.
	Diag io.Writer

	// BlockSize overrides the read block size; 0 means BlockSize.
	BlockSize int
}

// Consume reads r to end-of-stream into base, honoring Options, and
// returns the number of bytes processed.
func Consume(r io.Reader, base *digest.Context, opts Options) (uint64, error) {
	bs := opts.BlockSize
	if bs <= 0 {
		bs = BlockSize
	}
	interactive := isInteractive(r)
	if opts.Diag != nil {
		fmt.Fprint(opts.Diag, "reading data to hash from stdin...")
		if interactive {
			fmt.Fprintln(opts.Diag)
		}
	}

	buf := make([]byte, bs)
	var total uint64
	blocks := 0
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if uerr := base.Update(buf[:n]); uerr != nil {
				return total, uerr
			}
			total += uint64(n)
			if opts.Echo != nil {
				if _, werr := opts.Echo.Write(buf[:n]); werr != nil {
					return total, fmt.Errorf("echoing input: %w", werr)
				}
			}
			if opts.Diag != nil && !interactive {
				if blocks%progressEvery == 0 {
					fmt.Fprint(opts.Diag, ".")
				}
				blocks++
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, fmt.Errorf("reading input: %w", err)
		}
	}
	if opts.Diag != nil && !interactive {
		fmt.Fprintln(opts.Diag)
	}
	return total, nil
}

func isInteractive(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
