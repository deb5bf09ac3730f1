// Package metrics holds the prometheus counters nostrbird exports and the
// optional listener serving them.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nostrbird.lol/chk"
	"nostrbird.lol/context"
	"nostrbird.lol/log"
)

var (
	StreamRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nostrbird_stream_records_total",
		Help: "Chunks read from the upstream stream, by outcome",
	}, []string{"outcome"})

	RelayConnects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nostrbird_relay_connects_total",
		Help: "Relay connection attempts, by outcome",
	}, []string{"outcome"})

	RelaySends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nostrbird_relay_sends_total",
		Help: "Messages sent to relays, by relay and outcome",
	}, []string{"relay", "outcome"})

	Published = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nostrbird_events_total",
		Help: "Events built and broadcast, by outcome",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(StreamRecords, RelayConnects, RelaySends, Published)
}

// Serve exposes /metrics on addr until c is canceled. An empty addr does
// nothing.
func Serve(c context.T, addr string) (err error) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-c.Done()
		sc, cancel := context.Timeout(context.Bg(), 5*time.Second)
		defer cancel()
		chk.E(srv.Shutdown(sc))
	}()
	log.I.F("serving metrics on http://%s/metrics", addr)
	if err = srv.ListenAndServe(); errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return
}
