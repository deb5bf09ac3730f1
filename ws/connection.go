package ws

import (
	"bytes"
	"compress/flate"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/httphead"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsflate"
	"github.com/gobwas/ws/wsutil"

	"nostrbird.lol/chk"
	"nostrbird.lol/context"
	"nostrbird.lol/errorf"
	"nostrbird.lol/log"
)

// lockedConn makes each Write on the socket atomic, so control frame replies
// from the read side never land inside a data frame from the write side.
type lockedConn struct {
	net.Conn
	mx sync.Mutex
}

func (l *lockedConn) Write(p []byte) (n int, err error) {
	l.mx.Lock()
	defer l.mx.Unlock()
	return l.Conn.Write(p)
}

// Connection is an outbound client -> relay websocket.
type Connection struct {
	conn              *lockedConn
	enableCompression bool
	controlHandler    wsutil.FrameHandlerFunc
	flateReader       *wsflate.Reader
	reader            *wsutil.Reader
	flateWriter       *wsflate.Writer
	writer            *wsutil.Writer
	msgStateR         *wsflate.MessageState
	msgStateW         *wsflate.MessageState
}

// NewConnection dials url and negotiates permessage-deflate if the relay
// offers it.
func NewConnection(c context.T, url string, requestHeader http.Header,
	tlsConfig *tls.Config) (*Connection, error) {
	dialer := ws.Dialer{
		Header: ws.HandshakeHeaderHTTP(requestHeader),
		Extensions: []httphead.Option{
			wsflate.DefaultParameters.Option(),
		},
		TLSConfig: tlsConfig,
	}
	nc, _, hs, err := dialer.Dial(c, url)
	if err != nil {
		return nil, errorf.D("failed to dial: %w", err)
	}
	conn := &lockedConn{Conn: nc}

	enableCompression := false
	state := ws.StateClientSide
	for _, extension := range hs.Extensions {
		if string(extension.Name) == wsflate.ExtensionName {
			enableCompression = true
			state |= ws.StateExtended
			break
		}
	}

	// reader
	var flateReader *wsflate.Reader
	var msgStateR wsflate.MessageState
	if enableCompression {
		msgStateR.SetCompressed(true)
		flateReader = wsflate.NewReader(nil, func(r io.Reader) wsflate.Decompressor {
			return flate.NewReader(r)
		})
	}
	controlHandler := wsutil.ControlFrameHandler(conn, ws.StateClientSide)
	reader := &wsutil.Reader{
		Source:         conn,
		State:          state,
		OnIntermediate: controlHandler,
		CheckUTF8:      false,
		Extensions: []wsutil.RecvExtension{
			&msgStateR,
		},
	}

	// writer
	var flateWriter *wsflate.Writer
	var msgStateW wsflate.MessageState
	if enableCompression {
		msgStateW.SetCompressed(true)
		flateWriter = wsflate.NewWriter(nil, func(w io.Writer) wsflate.Compressor {
			fw, err := flate.NewWriter(w, 4)
			if err != nil {
				log.E.F("failed to create flate writer: %v", err)
			}
			return fw
		})
	}
	writer := wsutil.NewWriter(conn, state, ws.OpText)
	writer.SetExtensions(&msgStateW)

	return &Connection{
		conn:              conn,
		enableCompression: enableCompression,
		controlHandler:    controlHandler,
		flateReader:       flateReader,
		reader:            reader,
		msgStateR:         &msgStateR,
		flateWriter:       flateWriter,
		writer:            writer,
		msgStateW:         &msgStateW,
	}, nil
}

// WriteMessage sends data as one text message. A zero deadline means no
// deadline.
func (cn *Connection) WriteMessage(c context.T, data []byte,
	deadline time.Time) (err error) {
	select {
	case <-c.Done():
		return c.Err()
	default:
	}
	if err = cn.conn.SetWriteDeadline(deadline); chk.T(err) {
		return
	}
	if cn.msgStateW.IsCompressed() && cn.enableCompression {
		cn.flateWriter.Reset(cn.writer)
		if _, err = io.Copy(cn.flateWriter, bytes.NewReader(data)); chk.T(err) {
			return errorf.T("failed to write message: %w", err)
		}
		if err = cn.flateWriter.Close(); chk.T(err) {
			return errorf.T("failed to close flate writer: %w", err)
		}
	} else {
		if _, err = io.Copy(cn.writer, bytes.NewReader(data)); chk.T(err) {
			return errorf.T("failed to write message: %w", err)
		}
	}
	if err = cn.writer.Flush(); chk.T(err) {
		return errorf.T("failed to flush writer: %w", err)
	}
	return
}

// WritePing sends a ping control frame.
func (cn *Connection) WritePing(deadline time.Time) (err error) {
	if err = cn.conn.SetWriteDeadline(deadline); chk.T(err) {
		return
	}
	return wsutil.WriteClientMessage(cn.conn, ws.OpPing, nil)
}

// ReadMessage reads the next text or binary message into buf, answering
// control frames on the way.
func (cn *Connection) ReadMessage(c context.T, buf io.Writer) (err error) {
	for {
		select {
		case <-c.Done():
			return c.Err()
		default:
		}
		var h ws.Header
		if h, err = cn.reader.NextFrame(); err != nil {
			return errorf.T("failed to advance frame: %w", err)
		}
		if h.OpCode.IsControl() {
			if err = cn.controlHandler(h, cn.reader); err != nil {
				return errorf.T("failed to handle control frame: %w", err)
			}
		} else if h.OpCode == ws.OpBinary || h.OpCode == ws.OpText {
			break
		}
		if err = cn.reader.Discard(); chk.T(err) {
			return errorf.T("failed to discard: %w", err)
		}
	}
	if cn.msgStateR.IsCompressed() && cn.enableCompression {
		cn.flateReader.Reset(cn.reader)
		if _, err = io.Copy(buf, cn.flateReader); chk.T(err) {
			return errorf.T("failed to read message: %w", err)
		}
	} else {
		if _, err = io.Copy(buf, cn.reader); chk.T(err) {
			return errorf.T("failed to read message: %w", err)
		}
	}
	return
}

// Close the Connection.
func (cn *Connection) Close() error { return cn.conn.Close() }
