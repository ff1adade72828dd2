package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shizukutanaka/hashseek/internal/candidate"
	"github.com/shizukutanaka/hashseek/internal/config"
	"github.com/shizukutanaka/hashseek/internal/digest"
	"github.com/shizukutanaka/hashseek/internal/logging"
	"github.com/shizukutanaka/hashseek/internal/prefix"
	"github.com/shizukutanaka/hashseek/internal/report"
	"github.com/shizukutanaka/hashseek/internal/search"
	"github.com/shizukutanaka/hashseek/internal/stream"
)

const Version = "1.1.0"

var cfgFile string

// rootCmd is the search itself: hashseek [flags] <hexprefix>.
var rootCmd = &cobra.Command{
	Use:   "hashseek [flags] <hexprefix>",
	Short: "Brute-force a byte suffix that forces a chosen digest prefix",
	Long: `hashseek reads data from standard input and searches for a byte suffix
whose addition makes the digest of the combined stream begin with the
given hexadecimal prefix. An odd-length prefix matches down to its final
high nibble.

In matching mode (the default) the input is echoed verbatim to standard
output followed by the winning suffix, producing a file with the
requested digest prefix. With --list every qualifying candidate in the
range is printed instead and the input is never echoed.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       Version,
	RunE:          runSearch,
}

// Execute runs the CLI. Exhaustion in matching mode exits 1 without a
// trace: the reporter already said "no match found."
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, search.ErrExhausted) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	rootCmd.Flags().IntP("bits", "b", 24, "search-space exponent, 1..64")
	rootCmd.Flags().StringP("digest", "d", "md5", "digest algorithm (see 'hashseek algorithms')")
	rootCmd.Flags().BoolP("list", "l", false, "list every qualifying candidate instead of emitting a matching file")
	rootCmd.Flags().StringP("encoding", "e", "binary", "candidate encoding: binary or decimal")
	rootCmd.Flags().IntP("workers", "w", 0, "worker count (0 = one per logical CPU)")
	rootCmd.Flags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.Flags().Int("block-size", stream.BlockSize, "input read block size in bytes")
	rootCmd.Flags().Duration("stats-interval", 10*time.Second, "hash-rate report interval (0 disables)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Every configuration error must surface before a single byte of
	// input is consumed.
	target, err := prefix.Parse(args[0])
	if err != nil {
		return err
	}
	alg, err := digest.Get(cfg.Digest)
	if err != nil {
		return err
	}
	if err := target.Validate(alg.Size); err != nil {
		return err
	}
	enc, err := candidate.ParseEncoding(cfg.Encoding)
	if err != nil {
		return err
	}
	max, err := search.MaxSearch(cfg.Bits)
	if err != nil {
		return err
	}
	mode := search.Matching
	if cfg.List {
		mode = search.Listing
	}

	base, err := digest.NewContext(cfg.Digest)
	if err != nil {
		return err
	}

	reporter := report.New(os.Stdout, os.Stderr)

	var echo io.Writer
	if mode == search.Matching {
		echo = reporter.Primary()
	}
	total, err := stream.Consume(os.Stdin, base, stream.Options{
		Echo:      echo,
		Diag:      os.Stderr,
		BlockSize: cfg.BlockSize,
	})
	if err != nil {
		return err
	}
	logger.Debug("input consumed",
		zap.String("bytes", humanize.Bytes(total)),
		zap.String("digest", alg.Name),
	)

	// The announcement finalizes a throwaway clone; the shared base
	// must stay live for the workers.
	probe, err := base.Clone()
	if err != nil {
		return err
	}
	baseSum, err := probe.Finalize()
	if err != nil {
		return err
	}
	reporter.BaseDigest(baseSum)
	reporter.Banner(max)

	coord := search.New(search.Config{
		Mode:       mode,
		Target:     target,
		Encoding:   enc,
		MaxSearch:  max,
		Workers:    cfg.Workers,
		StatsEvery: cfg.StatsInterval,
	}, base, logger)

	matches, err := coord.Run(cmd.Context())

	if mode == search.Listing {
		if err != nil {
			return err
		}
		return reporter.List(matches, enc)
	}
	if errors.Is(err, search.ErrExhausted) {
		if rerr := reporter.NoMatch(); rerr != nil {
			return rerr
		}
		return err
	}
	if err != nil {
		return err
	}
	return reporter.Found(matches[0], enc)
}
