// Package interrupt runs registered handlers, in reverse order of
// registration, when the process receives SIGINT or SIGTERM.
package interrupt

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"nostrbird.lol/log"
)

var (
	mx       sync.Mutex
	handlers []func()
	started  bool
	once     sync.Once
	// HandlersDone is closed once every handler has run.
	HandlersDone = make(chan struct{})
	requested    = make(chan struct{}, 1)
	signals      = []os.Signal{os.Interrupt, syscall.SIGTERM}
)

// AddHandler registers fn to run on shutdown and starts the listener on first
// use.
func AddHandler(fn func()) {
	mx.Lock()
	defer mx.Unlock()
	handlers = append(handlers, fn)
	if !started {
		started = true
		go listener()
	}
}

// request triggers the shutdown handlers as if a signal had arrived.
func request() {
	select {
	case requested <- struct{}{}:
	default:
	}
}

func listener() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, signals...)
	defer signal.Stop(sig)
	select {
	case s := <-sig:
		log.I.F("received %s, shutting down", s)
	case <-requested:
		log.D.Ln("shutdown requested")
	}
	run()
}

func run() {
	once.Do(func() {
		mx.Lock()
		hs := append([]func(){}, handlers...)
		mx.Unlock()
		for i := len(hs) - 1; i >= 0; i-- {
			hs[i]()
		}
		close(HandlersDone)
	})
}
