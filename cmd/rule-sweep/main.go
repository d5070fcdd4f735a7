package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"time"

	"totalistic-ca/internal/sweep"
)

type intList []int

func (l *intList) String() string {
	parts := make([]string, len(*l))
	for i, v := range *l {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (l *intList) Set(value string) error {
	*l = (*l)[:0]
	for _, part := range strings.Split(value, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return err
		}
		*l = append(*l, v)
	}
	return nil
}

func main() {
	cfg := sweep.DefaultConfig()
	states := intList(cfg.States)
	flag.Var(&states, "states", "comma-separated state counts to sweep")
	flag.IntVar(&cfg.Tables, "tables", cfg.Tables, "random tables per state count")
	flag.IntVar(&cfg.Grid, "grid", cfg.Grid, "grid side length")
	flag.IntVar(&cfg.Steps, "steps", cfg.Steps, "transient horizon per run")
	flag.IntVar(&cfg.Runs, "runs", cfg.Runs, "runs per table")
	flag.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "number of concurrent runs")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "first table seed")
	top := flag.Int("top", 5, "number of results to print")
	flag.Parse()
	cfg.States = states

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Sweeping %d tables (%d workers, %d runs of %d steps each)\n", len(cfg.States)*cfg.Tables, cfg.Workers, cfg.Runs, cfg.Steps)

	start := time.Now()
	results, err := sweep.Run(ctx, cfg, log.New(os.Stderr, "sweep: ", log.LstdFlags))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("\nTop %d results (elapsed %s):\n", *top, time.Since(start).Round(time.Millisecond))
	for i := 0; i < len(results) && i < *top; i++ {
		fmt.Printf("%2d) %s\n", i+1, results[i])
	}
}
