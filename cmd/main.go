package main

import (
	"context"
	"flag"
	"os/signal"
	"strings"
	"syscall"

	"gleipnir/internal/net"
	"gleipnir/internal/stats"
	"gleipnir/internal/venue"
)

func main() {
	address := flag.String("address", "0.0.0.0", "Listen address")
	port := flag.Int("port", 9001, "Listen port")
	symbols := flag.String("symbols", "AAPL", "Comma-separated list of listed tickers")
	flag.Parse()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	// Setup the venue, its latency tracker and the TCP server.
	v := venue.New(strings.Split(*symbols, ",")...)
	tracker := stats.NewTracker()
	v.SetObserver(tracker.Observe)
	srv := net.New(*address, *port, v)

	go srv.Run(ctx)
	// Block on running the server.
	<-ctx.Done()

	tracker.Report()
}
