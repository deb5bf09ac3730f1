package ws

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"nostrbird.lol/context"
	"nostrbird.lol/log"
	"nostrbird.lol/metrics"
	"nostrbird.lol/normalize"
)

// Pool is the registry of relay connections, keyed by normalized URL. It is
// safe for concurrent use: connecting is serialized per URL, broadcasts only
// read the registry.
type Pool struct {
	Relays         *xsync.MapOf[string, *Client]
	Context        context.T
	cancel         context.F
	locks          *xsync.MapOf[string, *sync.Mutex]
	connectTimeout time.Duration
	relayOpts      []Option
}

// PoolOption configures a Pool.
type PoolOption interface {
	ApplyPoolOption(*Pool)
}

// WithConnectTimeout bounds each relay dial.
type WithConnectTimeout time.Duration

func (t WithConnectTimeout) ApplyPoolOption(p *Pool) {
	if t > 0 {
		p.connectTimeout = time.Duration(t)
	}
}

// WithRelayOptions are passed to every Client the pool creates.
type WithRelayOptions []Option

func (o WithRelayOptions) ApplyPoolOption(p *Pool) {
	p.relayOpts = append(p.relayOpts, o...)
}

var (
	_ PoolOption = WithConnectTimeout(0)
	_ PoolOption = WithRelayOptions(nil)
)

// NewPool creates an empty pool. Canceling c closes every connection.
func NewPool(c context.T, opts ...PoolOption) *Pool {
	ctx, cancel := context.Cancel(c)
	p := &Pool{
		Relays:         xsync.NewMapOf[string, *Client](),
		Context:        ctx,
		cancel:         cancel,
		locks:          xsync.NewMapOf[string, *sync.Mutex](),
		connectTimeout: DefaultConnectTimeout,
	}
	for _, opt := range opts {
		opt.ApplyPoolOption(p)
	}
	go func() {
		<-ctx.Done()
		p.closeAll()
	}()
	return p
}

// namedLock serializes work on one URL without blocking other URLs.
func (p *Pool) namedLock(name string) (unlock func()) {
	mx, _ := p.locks.LoadOrCompute(name, func() *sync.Mutex { return &sync.Mutex{} })
	mx.Lock()
	return mx.Unlock
}

// EnsureRelay connects to url unless a live connection to it is already in the
// pool. Concurrent calls for the same relay result in one dial and one
// connection.
func (p *Pool) EnsureRelay(url string) (relay *Client, err error) {
	var nm string
	if nm, err = normalize.URL(url); err != nil {
		log.E.F("invalid relay address: %v", err)
		metrics.RelayConnects.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	defer p.namedLock(nm)()
	var ok bool
	if relay, ok = p.Relays.Load(nm); ok && relay.IsConnected() {
		return
	}
	if err = p.Context.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, nm, err)
	}
	c, cancel := context.Timeout(p.Context, p.connectTimeout)
	defer cancel()
	if relay, err = Connect(c, nm, p.relayOpts...); err != nil {
		log.E.F("{%s} %v", nm, err)
		metrics.RelayConnects.WithLabelValues("failed").Inc()
		return nil, err
	}
	log.I.F("{%s} connected", nm)
	metrics.RelayConnects.WithLabelValues("ok").Inc()
	p.Relays.Store(nm, relay)
	return
}

// Result is the outcome of sending to one relay.
type Result struct {
	URL string
	Err error
}

// Broadcast sends msg to every relay in the pool concurrently and waits for
// all of them. One relay failing or stalling never holds up the others, and
// every relay gets a Result, sorted by URL.
func (p *Pool) Broadcast(c context.T, msg []byte) (results []Result) {
	var relays []*Client
	p.Relays.Range(func(_ string, r *Client) bool {
		relays = append(relays, r)
		return true
	})
	results = make([]Result, len(relays))
	var wg sync.WaitGroup
	for i, r := range relays {
		wg.Add(1)
		go func(i int, r *Client) {
			defer wg.Done()
			err := r.Send(c, msg)
			results[i] = Result{URL: r.URL(), Err: err}
			if err != nil {
				metrics.RelaySends.WithLabelValues(r.URL(), "failed").Inc()
			} else {
				metrics.RelaySends.WithLabelValues(r.URL(), "ok").Inc()
			}
		}(i, r)
	}
	wg.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].URL < results[j].URL })
	return
}

// URLs lists the relays in the pool, sorted.
func (p *Pool) URLs() (urls []string) {
	p.Relays.Range(func(u string, _ *Client) bool {
		urls = append(urls, u)
		return true
	})
	sort.Strings(urls)
	return
}

// Connected counts the relays whose connection is still alive.
func (p *Pool) Connected() (n int) {
	p.Relays.Range(func(_ string, r *Client) bool {
		if r.IsConnected() {
			n++
		}
		return true
	})
	return
}

// Close closes every connection in the pool.
func (p *Pool) Close() {
	p.cancel()
	p.closeAll()
}

func (p *Pool) closeAll() {
	p.Relays.Range(func(u string, r *Client) bool {
		if err := r.Close(); err != nil {
			log.D.F("{%s} close: %v", u, err)
		}
		return true
	})
}
