package host

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// socketSendBuffer bounds the outbound queue of one guest websocket.
const socketSendBuffer = 32

// HTTPRequest performs an outbound HTTP request on the guest's behalf. The
// request record carries method, url, a header list of key/value pairs, and
// an optional body; the response carries status, headers, and body text.
func (s *Surface) HTTPRequest(ctx context.Context, req map[string]any) map[string]any {
	if err := s.caps.CheckNetworkHTTP(); err != nil {
		return failWith(err)
	}

	method, _ := req["method"].(string)
	if method == "" {
		method = http.MethodGet
	}
	url, _ := req["url"].(string)
	if url == "" {
		return fail("url required")
	}

	var body io.Reader
	if text, ok := req["body"].(string); ok {
		body = strings.NewReader(text)
	}

	httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, body)
	if err != nil {
		return failWith(err)
	}
	for _, pair := range headerPairs(req["headers"]) {
		httpReq.Header.Add(pair[0], pair[1])
	}

	resp, err := s.httpc.Do(httpReq)
	if err != nil {
		return failWith(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return failWith(err)
	}

	headers := make([]any, 0, len(resp.Header))
	for k, vs := range resp.Header {
		for _, v := range vs {
			headers = append(headers, []any{k, v})
		}
	}

	return ok(map[string]any{
		"status":  uint32(resp.StatusCode),
		"headers": headers,
		"body":    string(respBody),
	})
}

// wsConn is the arena entry for one guest websocket. The host owns the
// connection and the pump goroutines; the guest holds only the handle.
type wsConn struct {
	conn   *websocket.Conn
	out    chan string
	cancel context.CancelFunc
}

func (c *wsConn) Drop() {
	c.cancel()
	c.conn.Close()
}

// WebsocketConnect opens a connection and spawns a bidirectional pump owned
// by the host. Returns the new handle.
func (s *Surface) WebsocketConnect(ctx context.Context, url string) map[string]any {
	if err := s.caps.CheckNetworkWebsocket(); err != nil {
		return failWith(err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return failWith(err)
	}

	cctx, cancel := context.WithCancel(s.ctx)
	wc := &wsConn{conn: conn, out: make(chan string, socketSendBuffer), cancel: cancel}
	handle := s.handles.Insert(SlotWebsocket, wc)
	if handle == 0 {
		wc.Drop()
		return fail("instance shutting down")
	}

	// Writer: drains the outbound queue.
	go func() {
		for {
			select {
			case msg := <-wc.out:
				if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
					s.log.Debug("websocket write failed", zap.Uint32("handle", handle), zap.Error(err))
					return
				}
			case <-cctx.Done():
				return
			}
		}
	}()

	// Reader: forwards text frames to the dispatch loop until the peer or the
	// instance goes away.
	go func() {
		defer cancel()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				s.log.Debug("websocket closed", zap.Uint32("handle", handle), zap.Error(err))
				return
			}
			if kind != websocket.TextMessage {
				continue
			}
			select {
			case s.wsCh <- SocketMessage{Handle: handle, Text: string(data)}:
			case <-cctx.Done():
				return
			}
		}
	}()

	return ok(handle)
}

// WebsocketSend queues a text message on the named connection.
func (s *Surface) WebsocketSend(ctx context.Context, handle uint32, message string) map[string]any {
	v, found := s.handles.Get(handle, SlotWebsocket)
	if !found {
		return fail("unknown websocket handle %d", handle)
	}
	wc := v.(*wsConn)
	select {
	case wc.out <- message:
		return ok(nil)
	case <-s.ctx.Done():
		return fail("instance shutting down")
	}
}

// WebsocketClose terminates the connection and frees the handle.
func (s *Surface) WebsocketClose(ctx context.Context, handle uint32) map[string]any {
	if _, found := s.handles.Remove(handle); !found {
		return fail("unknown websocket handle %d", handle)
	}
	return ok(nil)
}
