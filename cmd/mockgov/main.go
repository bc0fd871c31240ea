// Command mockgov runs the synthetic provider backend. Point the service's
// federal_base_url at it directly and state_base_url at its /legiscan path.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/civiclens/billhub/internal/mockgov"
)

const (
	defaultAddr       = ":9090"
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func main() {
	var (
		addr     = flag.String("addr", defaultAddr, "Listen address")
		latency  = flag.Duration("latency", 0, "Added per-request latency")
		failRate = flag.Float64("fail-rate", 0, "Fraction of calls answered with a 503 (0..1)")
		apiKey   = flag.String("api-key", "", "Require this API key (empty disables the check)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mockgov.New(
		mockgov.WithLatency(*latency),
		mockgov.WithFailRate(*failRate),
		mockgov.WithAPIKey(*apiKey),
	).Register(mux)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	os.Stderr.WriteString("mockgov listening on " + *addr + "\n")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		os.Stderr.WriteString("mockgov failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
