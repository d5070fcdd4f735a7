package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"totalistic-ca/internal/app"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), app.Usage, "\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := cfg.ParseArgs(flag.Args()); err != nil {
		flag.Usage()
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := log.New(os.Stderr, "ca: ", log.LstdFlags)
	report, err := app.Execute(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("rule %s (%d states), %s mode: %d runs in %d batches, %d repeated\n",
		report.RuleName, report.States, report.Mode, report.Summary.Runs, report.Summary.Batches, report.Summary.Found)
	if report.BatchID != "" {
		fmt.Printf("ledger batch %s\n", report.BatchID)
	}
	for _, f := range report.Files {
		fmt.Printf("wrote %s\n", f)
	}
}
