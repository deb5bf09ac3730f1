// Package ws holds the relay side of nostrbird: a websocket Client per relay
// with a single writer goroutine, and a Pool that keys them by normalized URL
// and fans messages out to all of them.
package ws

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/atomic"

	"nostrbird.lol/chk"
	"nostrbird.lol/context"
	"nostrbird.lol/envelopes"
	"nostrbird.lol/envelopes/noticeenvelope"
	"nostrbird.lol/envelopes/okenvelope"
	"nostrbird.lol/errorf"
	"nostrbird.lol/hex"
	"nostrbird.lol/log"
	"nostrbird.lol/normalize"
)

var (
	// ErrConnect is returned when a relay cannot be dialled.
	ErrConnect = errors.New("relay connect failed")
	// ErrSend is returned when one write to a relay fails, times out, or the
	// connection is already gone.
	ErrSend = errors.New("relay send failed")
)

const (
	DefaultSendTimeout    = 10 * time.Second
	DefaultConnectTimeout = 15 * time.Second
	pingInterval          = 29 * time.Second
)

// Client is a persistent connection to one relay. Sends from any number of
// goroutines are queued to a single writer, so messages reach the relay whole
// and in the order their Send calls were accepted.
type Client struct {
	// Ctx is canceled when the connection closes.
	Ctx     context.T
	cancel  context.F
	url     string
	conn    *Connection
	closeMx sync.Mutex
	closed  atomic.Bool
	// ConnectionError is why the connection ended, if it ended on its own.
	ConnectionError atomic.Error
	RequestHeader   http.Header
	sendTimeout     time.Duration
	writeQueue      chan writeRequest
	noticeHandler   func(url string, notice []byte)
	okHandler       func(url string, ok *okenvelope.T)
}

type writeRequest struct {
	msg      []byte
	deadline time.Time
	// answer is buffered so the writer never blocks on a sender that gave up.
	answer chan error
}

// Option configures a Client.
type Option interface {
	IsRelayOption()
}

// WithSendTimeout bounds each Send, from queueing to the write completing.
type WithSendTimeout time.Duration

func (WithSendTimeout) IsRelayOption() {}

// WithNoticeHandler receives NOTICE messages; without it they are logged.
type WithNoticeHandler func(url string, notice []byte)

func (WithNoticeHandler) IsRelayOption() {}

// WithOKHandler receives OK acknowledgements; without it they are logged.
type WithOKHandler func(url string, ok *okenvelope.T)

func (WithOKHandler) IsRelayOption() {}

// WithRequestHeader sets headers for the websocket handshake.
type WithRequestHeader http.Header

func (WithRequestHeader) IsRelayOption() {}

var (
	_ Option = WithSendTimeout(0)
	_ Option = (WithNoticeHandler)(nil)
	_ Option = (WithOKHandler)(nil)
	_ Option = (WithRequestHeader)(nil)
)

// NewClient prepares a Client for url. The url is normalized; an address that
// cannot be normalized is an ErrConnect.
func NewClient(c context.T, url string, opts ...Option) (r *Client, err error) {
	var nu string
	if nu, err = normalize.URL(url); err != nil {
		err = fmt.Errorf("%w: %w", ErrConnect, err)
		return
	}
	ctx, cancel := context.Cancel(c)
	r = &Client{
		Ctx:         ctx,
		cancel:      cancel,
		url:         nu,
		sendTimeout: DefaultSendTimeout,
		writeQueue:  make(chan writeRequest),
	}
	for _, opt := range opts {
		switch o := opt.(type) {
		case WithSendTimeout:
			if o > 0 {
				r.sendTimeout = time.Duration(o)
			}
		case WithNoticeHandler:
			r.noticeHandler = o
		case WithOKHandler:
			r.okHandler = o
		case WithRequestHeader:
			r.RequestHeader = http.Header(o)
		}
	}
	return
}

// Connect returns a Client connected to url. Once connected, canceling c has
// no effect; call Close to close the connection.
func Connect(c context.T, url string, opts ...Option) (r *Client, err error) {
	if r, err = NewClient(context.Bg(), url, opts...); err != nil {
		return
	}
	if err = r.Connect(c); err != nil {
		r.cancel()
		return nil, err
	}
	return
}

func (r *Client) URL() string    { return r.url }
func (r *Client) String() string { return r.url }

// IsConnected reports whether the connection still seems alive.
func (r *Client) IsConnected() bool { return r.Ctx.Err() == nil }

// Connect dials the relay. If c has no deadline DefaultConnectTimeout applies.
func (r *Client) Connect(c context.T) (err error) {
	if r.Ctx == nil || r.writeQueue == nil {
		return errorf.E("relay must be initialized with a call to NewClient()")
	}
	if _, ok := c.Deadline(); !ok {
		var cancel context.F
		c, cancel = context.Timeout(c, DefaultConnectTimeout)
		defer cancel()
	}
	var conn *Connection
	if conn, err = NewConnection(c, r.url, r.RequestHeader, nil); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnect, r.url, err)
	}
	r.conn = conn
	log.D.F("{%s} connected", r.url)
	go r.writeLoop()
	go r.MessageReadLoop()
	return
}

// writeLoop owns the socket's write side. Every write request and every ping
// goes through it.
func (r *Client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	var err error
	for {
		select {
		case <-ticker.C:
			if err = r.conn.WritePing(time.Now().Add(r.sendTimeout)); err != nil {
				log.D.F("{%s} error writing ping: %v; closing websocket",
					r.url, err)
				r.fail(err)
				return
			}
		case wr := <-r.writeQueue:
			if err = r.conn.WriteMessage(r.Ctx, wr.msg, wr.deadline); err != nil {
				wr.answer <- err
				// a failed or timed out write can leave a partial frame on the
				// wire, nothing after it can be trusted
				r.fail(err)
				return
			}
			close(wr.answer)
		case <-r.Ctx.Done():
			return
		}
	}
}

// MessageReadLoop drains frames from the relay until the connection ends,
// logging acknowledgements and notices.
func (r *Client) MessageReadLoop() {
	var err error
	for {
		buf := new(bytes.Buffer)
		if err = r.conn.ReadMessage(r.Ctx, buf); err != nil {
			if r.Ctx.Err() == nil {
				log.D.F("{%s} connection ended: %v", r.url, err)
				r.fail(err)
			}
			return
		}
		r.handleMessage(buf.Bytes())
	}
}

func (r *Client) handleMessage(message []byte) {
	label, rest, err := envelopes.Elements(message)
	if err != nil {
		log.D.F("{%s} unparseable message: %s", r.url, message)
		return
	}
	switch label {
	case okenvelope.L:
		env := okenvelope.New()
		if err = env.Unmarshal(rest); chk.D(err) {
			return
		}
		if r.okHandler != nil {
			r.okHandler(r.url, env)
			return
		}
		if env.OK || normalize.Duplicate.IsPrefix(env.Reason) {
			log.D.F("{%s} accepted %s %s", r.url, hex.Enc(env.EventID), env.Reason)
		} else {
			log.E.F("{%s} rejected %s: %s", r.url, hex.Enc(env.EventID), env.Reason)
		}
	case noticeenvelope.L:
		env := noticeenvelope.New()
		if err = env.Unmarshal(rest); chk.D(err) {
			return
		}
		if r.noticeHandler != nil {
			r.noticeHandler(r.url, env.Message)
			return
		}
		log.I.F("NOTICE from %s: '%s'", r.url, env.Message)
	default:
		log.T.F("{%s} ignoring %s message", r.url, label)
	}
}

// Send writes msg to the relay as one text frame and waits until it is on the
// wire. It fails with ErrSend if the connection is closed, the write fails, or
// the whole operation takes longer than the send timeout.
func (r *Client) Send(c context.T, msg []byte) (err error) {
	deadline := time.Now().Add(r.sendTimeout)
	if d, ok := c.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	wr := writeRequest{msg: msg, deadline: deadline, answer: make(chan error, 1)}
	select {
	case r.writeQueue <- wr:
	case <-r.Ctx.Done():
		return r.sendError(r.closedReason())
	case <-c.Done():
		return r.sendError(c.Err())
	case <-timer.C:
		return r.sendError(errors.New("timed out waiting for the connection"))
	}
	select {
	case err = <-wr.answer:
		if err != nil {
			return r.sendError(err)
		}
		return
	case <-r.Ctx.Done():
		return r.sendError(r.closedReason())
	}
}

func (r *Client) sendError(err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSend, r.url, err)
}

func (r *Client) closedReason() (err error) {
	if err = r.ConnectionError.Load(); err != nil {
		return fmt.Errorf("connection closed: %w", err)
	}
	return errors.New("connection closed")
}

// fail records why the connection ended and closes it.
func (r *Client) fail(err error) {
	r.ConnectionError.CompareAndSwap(nil, err)
	chk.T(r.Close())
}

// Close closes the connection. Calling it more than once is harmless.
func (r *Client) Close() (err error) {
	r.closeMx.Lock()
	defer r.closeMx.Unlock()
	if r.closed.Load() {
		return
	}
	r.closed.Store(true)
	r.cancel()
	if r.conn != nil {
		err = r.conn.Close()
	}
	return
}
