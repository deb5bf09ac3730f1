package ws

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
	"lukechampine.com/frand"

	"nostrbird.lol/context"
	"nostrbird.lol/envelopes/okenvelope"
)

func newWebsocketServer(handler func(*websocket.Conn)) *httptest.Server {
	return httptest.NewServer(&websocket.Server{
		Handshake: anyOriginHandshake,
		Handler:   handler,
	})
}

// anyOriginHandshake is an alternative to default in golang.org/x/net/websocket
// which checks for origin. nostr client sends no origin and it makes no
// difference for the tests here anyway.
var anyOriginHandshake = func(conf *websocket.Config, r *http.Request) error {
	return nil
}

// recorder is a fake relay that keeps every text message it receives.
type recorder struct {
	mx       sync.Mutex
	messages []string
	got      chan string
}

func newRecorder() *recorder { return &recorder{got: make(chan string, 1024)} }

func (rec *recorder) handler(conn *websocket.Conn) {
	for {
		var msg string
		if err := websocket.Message.Receive(conn, &msg); err != nil {
			return
		}
		rec.mx.Lock()
		rec.messages = append(rec.messages, msg)
		rec.mx.Unlock()
		rec.got <- msg
	}
}

func (rec *recorder) wait(t *testing.T, n int) []string {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-rec.got:
		case <-timeout:
			t.Fatalf("relay got %d of %d messages", i, n)
		}
	}
	rec.mx.Lock()
	defer rec.mx.Unlock()
	return append([]string(nil), rec.messages...)
}

func mustRelayConnect(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	rl, err := Connect(context.Bg(), url, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { rl.Close() })
	return rl
}

func TestSendPreservesOrder(t *testing.T) {
	rec := newRecorder()
	srv := newWebsocketServer(rec.handler)
	defer srv.Close()
	rl := mustRelayConnect(t, srv.URL)
	var want []string
	for i := 0; i < 50; i++ {
		msg := fmt.Sprintf(`["EVENT",{"n":%d}]`, i)
		want = append(want, msg)
		require.NoError(t, rl.Send(context.Bg(), []byte(msg)))
	}
	assert.Equal(t, want, rec.wait(t, 50))
}

func TestConcurrentSendsNeverInterleave(t *testing.T) {
	rec := newRecorder()
	srv := newWebsocketServer(rec.handler)
	defer srv.Close()
	rl := mustRelayConnect(t, srv.URL)
	sent := make(map[string]bool)
	var wg sync.WaitGroup
	var mx sync.Mutex
	for i := 0; i < 20; i++ {
		msg := frand.Entropy256()
		s := fmt.Sprintf("%x", msg[:])
		mx.Lock()
		sent[s] = true
		mx.Unlock()
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, rl.Send(context.Bg(), []byte(s)))
		}()
	}
	wg.Wait()
	for _, m := range rec.wait(t, 20) {
		assert.True(t, sent[m], "relay got a message nobody sent: %q", m)
	}
}

func TestSendTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := newWebsocketServer(func(conn *websocket.Conn) {
		// never read, so the socket buffers fill up
		<-release
	})
	defer srv.Close()
	defer close(release)
	rl := mustRelayConnect(t, srv.URL, WithSendTimeout(200*time.Millisecond))
	big := frand.Bytes(32 << 20)
	start := time.Now()
	err := rl.Send(context.Bg(), big)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSend))
	assert.Less(t, time.Since(start), 5*time.Second)
	// the connection is gone now and further sends fail straight away
	select {
	case <-rl.Ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("connection was not closed after the timed out write")
	}
	err = rl.Send(context.Bg(), []byte(`["EVENT",{}]`))
	assert.True(t, errors.Is(err, ErrSend))
	assert.False(t, rl.IsConnected())
}

func TestSendAfterRelayHangsUp(t *testing.T) {
	srv := newWebsocketServer(func(conn *websocket.Conn) {})
	defer srv.Close()
	rl := mustRelayConnect(t, srv.URL)
	select {
	case <-rl.Ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("read loop did not notice the relay hanging up")
	}
	err := rl.Send(context.Bg(), []byte(`["EVENT",{}]`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSend))
	assert.Contains(t, err.Error(), "connection closed")
}

func TestConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	_, err := Connect(context.Bg(), url)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnect))
	_, err = Connect(context.Bg(), "x.com:notaport")
	assert.True(t, errors.Is(err, ErrConnect))
}

func TestReadLoopDeliversAcks(t *testing.T) {
	id := frand.Bytes(32)
	srv := newWebsocketServer(func(conn *websocket.Conn) {
		var msg string
		if err := websocket.Message.Receive(conn, &msg); err != nil {
			return
		}
		websocket.Message.Send(conn, `["NOTICE","slow down"]`)
		websocket.Message.Send(conn, string(okenvelope.NewFrom(id, true).Marshal(nil)))
		var rest string
		websocket.Message.Receive(conn, &rest)
	})
	defer srv.Close()
	oks := make(chan *okenvelope.T, 1)
	notices := make(chan string, 1)
	rl := mustRelayConnect(t, srv.URL,
		WithOKHandler(func(url string, ok *okenvelope.T) { oks <- ok }),
		WithNoticeHandler(func(url string, n []byte) { notices <- string(n) }))
	require.NoError(t, rl.Send(context.Bg(), []byte(`["EVENT",{}]`)))
	select {
	case n := <-notices:
		assert.Equal(t, "slow down", n)
	case <-time.After(5 * time.Second):
		t.Fatal("no notice")
	}
	select {
	case ok := <-oks:
		assert.True(t, ok.OK)
		assert.Equal(t, id, ok.EventID)
	case <-time.After(5 * time.Second):
		t.Fatal("no ok")
	}
}
