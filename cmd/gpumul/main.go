// Command gpumul demonstrates a single GPU compute dispatch: it uploads a
// batch of records, runs the element-wise product kernel, and prints the
// results. On machines without a compute device it prints a headless
// notice and computes the same results on the host. Both paths exit 0.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/gogpu/gpumul"
	"github.com/gogpu/gpumul/internal/hostinfo"

	_ "github.com/gogpu/gpumul/gpu" // enable GPU dispatch
)

func main() {
	var (
		n       = flag.Int("n", 4, "number of input records")
		scale   = flag.Float64("scale", 1.0, "scale factor for the group-sum demo")
		demo    = flag.String("demo", "multiply", "kernel to run: multiply or groupsum")
		verbose = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		gpumul.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	fmt.Println("gpumul: GPU compute dispatch demo")
	fmt.Println("=================================")
	fmt.Println()

	printEnvironment()

	records := buildRecords(*n)
	fmt.Println("Input records:")
	for i, r := range records {
		fmt.Printf("  [%d] value: %g, multiplier: %g\n", i, r.Value, r.Multiplier)
	}

	runner := gpumul.NewRunner()

	var (
		results []float32
		err     error
	)
	switch *demo {
	case "multiply":
		results, err = runner.Multiply(records)
	case "groupsum":
		results, err = runner.GroupSum(records, float32(*scale))
	default:
		fmt.Fprintf(os.Stderr, "unknown -demo %q (want multiply or groupsum)\n", *demo)
		os.Exit(2)
	}
	if err != nil {
		// Only faults after a device was acquired end up here; a missing
		// device is handled by the runner's host path.
		fmt.Fprintf(os.Stderr, "dispatch failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nResults (%s kernel, computed on %s):\n", *demo, runner.LastSource())
	for i, r := range results {
		fmt.Printf("  [%d] %g\n", i, r)
	}

	fmt.Println()
	fmt.Println("Done.")
}

// printEnvironment lists the discovered adapters, or the headless notice
// when no compute device is available.
func printEnvironment() {
	accel := gpumul.Accelerator()
	if accel == nil || !accel.CanCompute() {
		fmt.Println("No compute device found in this environment.")
		fmt.Println("This is expected on headless/CI machines; computing on the host instead.")
		fmt.Printf("Host: %s\n\n", hostinfo.Detect())
		return
	}

	adapters := accel.Adapters()
	fmt.Printf("Found %d adapter(s):\n", len(adapters))
	for _, ad := range adapters {
		fmt.Printf("  [%d] %s (%s)\n", ad.Index, ad.Name, ad.Kind)
	}
	fmt.Println()
}

// buildRecords returns the demo input batch. The default size of four
// produces the records (1,2), (2,3), (3,4), (4,5); larger batches continue
// the same pattern.
func buildRecords(n int) []gpumul.Record {
	if n < 0 {
		n = 0
	}
	records := make([]gpumul.Record, n)
	for i := range records {
		records[i] = gpumul.Record{Value: float32(i + 1), Multiplier: float32(i + 2)}
	}
	return records
}
