package commands

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/cpuid/v2"
	"github.com/spf13/cobra"

	"github.com/shizukutanaka/hashseek/internal/digest"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark per-algorithm search throughput",
	Long: `Measure how many clone-update-finalize cycles per second each
registered digest algorithm sustains on this machine, using the same
per-candidate code path the search workers run.`,
	RunE: runBench,
}

var (
	benchDuration time.Duration
	benchSize     int
)

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().DurationVar(&benchDuration, "duration", 3*time.Second, "per-algorithm benchmark duration")
	benchCmd.Flags().IntVar(&benchSize, "size", 64, "base payload size in bytes")
}

func runBench(cmd *cobra.Command, args []string) error {
	fmt.Printf("CPU: %s (%d logical cores)\n\n", cpuid.CPU.BrandName, cpuid.CPU.LogicalCores)

	payload := make([]byte, benchSize)
	for i := range payload {
		payload[i] = byte(i)
	}

	for _, name := range digest.List() {
		base, err := digest.NewContext(name)
		if err != nil {
			return err
		}
		if err := base.Update(payload); err != nil {
			return err
		}

		var ops uint64
		var scratch [4]byte
		start := time.Now()
		deadline := start.Add(benchDuration)
		for time.Now().Before(deadline) {
			clone, err := base.Clone()
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			binary.LittleEndian.PutUint32(scratch[:], uint32(ops))
			if err := clone.Update(scratch[:]); err != nil {
				return err
			}
			if _, err := clone.Finalize(); err != nil {
				return err
			}
			ops++
		}
		elapsed := time.Since(start)
		rate := float64(ops) / elapsed.Seconds()

		fmt.Printf("%-12s %12s  (%s hashes in %s)\n",
			name,
			humanize.SI(rate, "H/s"),
			humanize.Comma(int64(ops)),
			elapsed.Round(time.Millisecond),
		)
	}
	return nil
}
