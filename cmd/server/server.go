package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vesta/internal/engine"
	"vesta/internal/escrow"
	"vesta/internal/net"
	"vesta/internal/tax"
)

func main() {
	address := flag.String("addr", "0.0.0.0", "Listen address")
	port := flag.Int("port", 9001, "Listen port")
	debug := flag.Bool("debug", false, "Enable debug logging")
	pretty := flag.Bool("pretty", false, "Human-readable log output")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if *pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	// Setup the TCP server and the matching engine.
	records := escrow.NewRecords()
	taxes := tax.NewLedger()
	fees := tax.NewLedger()
	eng := engine.New(records, taxes, fees)
	srv := net.New(*address, *port, eng, records, taxes)
	eng.SetReporter(srv)

	go srv.Run(ctx)
	// Block on running the server.
	<-ctx.Done()
}
