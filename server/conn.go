package server

import (
	"bufio"
	"bytes"
	"net"

	"github.com/gorilla/websocket"
)

// conn abstracts the two transports a client may speak. ReadBatch returns one
// or more complete envelopes; WriteEnvelope sends exactly one.
type conn interface {
	ReadBatch() ([][]byte, error)
	WriteEnvelope(data []byte) error
}

// lineConn frames envelopes as newline-delimited JSON over a raw TCP stream.
type lineConn struct {
	raw net.Conn
	r   *bufio.Scanner
}

func newLineConn(raw net.Conn) *lineConn {
	sc := bufio.NewScanner(raw)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &lineConn{raw: raw, r: sc}
}

func (c *lineConn) ReadBatch() ([][]byte, error) {
	for c.r.Scan() {
		line := bytes.TrimSpace(c.r.Bytes())
		if len(line) == 0 {
			continue
		}
		out := make([]byte, len(line))
		copy(out, line)
		return [][]byte{out}, nil
	}
	if err := c.r.Err(); err != nil {
		return nil, err
	}
	return nil, net.ErrClosed
}

func (c *lineConn) WriteEnvelope(data []byte) error {
	_, err := c.raw.Write(append(data, '\n'))
	return err
}

// socketConn frames envelopes as websocket text messages. A single message
// may carry several newline-separated envelopes.
type socketConn struct {
	ws *websocket.Conn
}

func newSocketConn(ws *websocket.Conn) *socketConn {
	return &socketConn{ws: ws}
}

func (c *socketConn) ReadBatch() ([][]byte, error) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		var batch [][]byte
		for _, line := range bytes.Split(data, []byte{'\n'}) {
			line = bytes.TrimSpace(line)
			if len(line) > 0 {
				batch = append(batch, line)
			}
		}
		if len(batch) > 0 {
			return batch, nil
		}
	}
}

func (c *socketConn) WriteEnvelope(data []byte) error {
	return c.ws.WriteMessage(websocket.TextMessage, data)
}
