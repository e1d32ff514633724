// Command runner aggregates a file with either the parallel pipeline or the
// single goroutine reference, to compare their output and timing.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"runtime/pprof"
	"time"

	"stationstats/internal/brc"
	"stationstats/internal/fastbrc"
)

func main() {
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file")
	parserFuncName := flag.String("funcName", "pipeline", "function to call: pipeline, baseline or compare")
	inputFile := flag.String("i", "measurements.txt", "input file")
	nworkers := flag.Int("n", 0, "number of workers for the pipeline, 0 for one per CPU")
	useMmap := flag.Bool("mmap", false, "mmap the input file")
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	open := func() io.ReadCloser {
		f, err := brc.OpenSource(*inputFile, *useMmap)
		if err != nil {
			log.Fatal(err)
		}
		return f
	}

	pipeline := func() string {
		f := open()
		defer f.Close()
		start := time.Now()
		out, err := fastbrc.Run(f, fastbrc.Options{Workers: *nworkers})
		if err != nil {
			log.Fatalf("pipeline: %s", err)
		}
		slog.Info("pipeline done", "elapsed", time.Since(start))
		return out
	}

	baseline := func() string {
		f := open()
		defer f.Close()
		start := time.Now()
		out, err := brc.BaselineReport(f)
		if err != nil {
			log.Fatalf("baseline: %s", err)
		}
		slog.Info("baseline done", "elapsed", time.Since(start))
		return out
	}

	switch *parserFuncName {
	case "pipeline":
		fmt.Println(pipeline())
	case "baseline":
		fmt.Println(baseline())
	case "compare":
		if p, b := pipeline(), baseline(); p != b {
			log.Fatalf("outputs differ:\npipeline: %s\nbaseline: %s", p, b)
		}
		fmt.Println("outputs match")
	default:
		log.Fatalf("unknown func: %s", *parserFuncName)
	}
}
