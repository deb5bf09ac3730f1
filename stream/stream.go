// Package stream reads the upstream filtered stream: one long lived HTTP
// response carrying newline delimited JSON records and blank heartbeat lines.
// Every record with text is handed to a Handler on its own goroutine so a slow
// handler never holds up the read loop.
package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"nostrbird.lol/chk"
	"nostrbird.lol/context"
	"nostrbird.lol/log"
	"nostrbird.lol/metrics"
)

var (
	// ErrTransport is a failure to open or keep reading the upstream stream,
	// including a non-2xx response.
	ErrTransport = errors.New("stream transport error")
	// ErrRecordParse is one record that is not JSON or has no data.text.
	ErrRecordParse = errors.New("stream record parse error")
)

type State int32

const (
	Idle State = iota
	Connecting
	Streaming
	Ended
	Failed
)

var stateNames = []string{"idle", "connecting", "streaming", "ended", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Record is the part of an upstream record nostrbird cares about.
type Record struct {
	ID   string
	Text string
}

type wireRecord struct {
	Data *struct {
		ID   string  `json:"id"`
		Text *string `json:"text"`
	} `json:"data"`
}

// DefaultMaxRecordSize bounds one line of the stream. Longer lines are
// discarded as unparseable without being buffered whole.
const DefaultMaxRecordSize = 1 << 20

// Handler processes one record. Its error is logged and goes no further.
type Handler func(c context.T, rec *Record) error

// Stats counts what the read loop has seen.
type Stats struct {
	Received      uint64
	Heartbeats    uint64
	ParseFailures uint64
	Dispatched    uint64
	Failed        uint64
}

type Ingester struct {
	URL         string
	BearerToken string
	Client      *http.Client
	Handler     Handler
	// MaxRecordSize is the longest line kept; zero means DefaultMaxRecordSize.
	MaxRecordSize int

	state         atomic.Int32
	received      atomic.Uint64
	heartbeats    atomic.Uint64
	parseFailures atomic.Uint64
	dispatched    atomic.Uint64
	failed        atomic.Uint64

	tasks      errgroup.Group
	taskCtx    context.T
	taskCancel context.F
}

// New creates an Ingester for the stream at url. Handlers run with their own
// context, which is only canceled when Wait gives up on them.
func New(url, bearerToken string, h Handler) (in *Ingester) {
	in = &Ingester{
		URL:           url,
		BearerToken:   bearerToken,
		Client:        &http.Client{},
		Handler:       h,
		MaxRecordSize: DefaultMaxRecordSize,
	}
	in.taskCtx, in.taskCancel = context.Cancel(context.Bg())
	return
}

func (in *Ingester) State() State { return State(in.state.Load()) }

func (in *Ingester) setState(s State) {
	log.D.F("stream %s", s)
	in.state.Store(int32(s))
}

func (in *Ingester) Stats() Stats {
	return Stats{
		Received:      in.received.Load(),
		Heartbeats:    in.heartbeats.Load(),
		ParseFailures: in.parseFailures.Load(),
		Dispatched:    in.dispatched.Load(),
		Failed:        in.failed.Load(),
	}
}

// Run opens the stream and reads it until the body ends, the connection fails
// or c is canceled. A canceled c is a clean stop and returns nil.
func (in *Ingester) Run(c context.T) (err error) {
	in.setState(Connecting)
	var req *http.Request
	if req, err = http.NewRequestWithContext(c, http.MethodGet, in.URL, nil); chk.E(err) {
		in.setState(Failed)
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+in.BearerToken)
	var res *http.Response
	if res, err = in.Client.Do(req); err != nil {
		if c.Err() != nil {
			in.setState(Ended)
			return nil
		}
		in.setState(Failed)
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer res.Body.Close()
	log.I.F("stream status: %s", res.Status)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		log.E.F("stream body: %s", body)
		in.setState(Failed)
		return fmt.Errorf("%w: status %s", ErrTransport, res.Status)
	}
	in.setState(Streaming)
	if err = in.Read(c, res.Body); err != nil {
		if c.Err() != nil {
			in.setState(Ended)
			return nil
		}
		in.setState(Failed)
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	in.setState(Ended)
	log.I.Ln("stream ended")
	return
}

// Read splits r into lines and processes each one until r is exhausted. It
// returns nil at the end of r, or the read error. A line longer than
// MaxRecordSize is dropped as it arrives and counted as a parse failure.
func (in *Ingester) Read(c context.T, r io.Reader) (err error) {
	limit := in.MaxRecordSize
	if limit <= 0 {
		limit = DefaultMaxRecordSize
	}
	br := bufio.NewReaderSize(r, 64*1024)
	var line, frag []byte
	var dropped int
	for {
		frag, err = br.ReadSlice('\n')
		if dropped == 0 && len(line)+len(frag) <= limit {
			line = append(line, frag...)
		} else {
			dropped += len(line) + len(frag)
			line = line[:0]
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if dropped > 0 {
			in.oversized(dropped, limit)
			dropped = 0
		} else if len(line) > 0 {
			in.process(line)
		}
		line = line[:0]
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			return
		}
		if c.Err() != nil {
			return c.Err()
		}
	}
}

func (in *Ingester) process(chunk []byte) {
	chunk = bytes.TrimSpace(chunk)
	if len(chunk) == 0 {
		in.heartbeats.Inc()
		metrics.StreamRecords.WithLabelValues("heartbeat").Inc()
		log.T.Ln("heartbeat")
		return
	}
	in.received.Inc()
	rec, err := ParseRecord(chunk)
	if err != nil {
		in.parseFailures.Inc()
		metrics.StreamRecords.WithLabelValues("parse_error").Inc()
		log.W.F("discarding record: %v: %s", err, chunk)
		return
	}
	in.dispatch(rec)
}

func (in *Ingester) oversized(n, limit int) {
	in.received.Inc()
	in.parseFailures.Inc()
	metrics.StreamRecords.WithLabelValues("parse_error").Inc()
	log.W.F("discarding record: %v", fmt.Errorf("%w: %d bytes, limit is %d",
		ErrRecordParse, n, limit))
}

func (in *Ingester) dispatch(rec *Record) {
	in.dispatched.Inc()
	metrics.StreamRecords.WithLabelValues("dispatched").Inc()
	log.D.F("dispatching record %s", rec.ID)
	if in.Handler == nil {
		return
	}
	in.tasks.Go(func() error {
		if err := in.Handler(in.taskCtx, rec); err != nil {
			in.failed.Inc()
			log.E.F("record %s: %v", rec.ID, err)
		}
		return nil
	})
}

// ParseRecord decodes one chunk. A chunk without data.text is an
// ErrRecordParse.
func ParseRecord(chunk []byte) (rec *Record, err error) {
	var w wireRecord
	if err = json.Unmarshal(chunk, &w); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecordParse, err)
	}
	if w.Data == nil {
		return nil, fmt.Errorf("%w: no data", ErrRecordParse)
	}
	if w.Data.Text == nil {
		return nil, fmt.Errorf("%w: record %q has no text", ErrRecordParse, w.Data.ID)
	}
	return &Record{ID: w.Data.ID, Text: *w.Data.Text}, nil
}

// Wait joins the outstanding handlers. If they are not done within timeout
// their context is canceled and Wait returns context.DeadlineExceeded without
// waiting any further.
func (in *Ingester) Wait(timeout time.Duration) (err error) {
	done := make(chan struct{})
	go func() {
		chk.E(in.tasks.Wait())
		close(done)
	}()
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return
	case <-t.C:
		in.taskCancel()
		log.W.F("gave up waiting for handlers after %v", timeout)
		return context.DeadlineExceeded
	}
}
