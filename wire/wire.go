// Package wire implements the versioned JSON envelope exchanged with clients
// over a persistent full-duplex text channel.
//
// The "type" field drives discrimination. Inbound messages are calls and
// subscriptions; outbound messages are events and responses. Hosts echo
// request_id verbatim so clients can correlate responses.
package wire

import (
	"encoding/json"
	"time"

	"github.com/burakkaraceylan/vessel/bus"
	"github.com/burakkaraceylan/vessel/verrors"
)

const (
	TypeCall      = "call"
	TypeSubscribe = "subscribe"
	TypeEvent     = "event"
	TypeResponse  = "response"
)

// Incoming is a client-to-host message: *Call or *Subscribe.
type Incoming interface {
	incoming()
}

// Call routes a command to a module. Version is bumped only on breaking
// payload changes and defaults to 1 when omitted.
type Call struct {
	RequestID string          `json:"request_id"`
	Module    string          `json:"module"`
	Name      string          `json:"name"`
	Version   uint32          `json:"version"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// Subscribe asks to receive future events matching module+name. Name may be a
// glob.
type Subscribe struct {
	Module string `json:"module"`
	Name   string `json:"name"`
}

func (*Call) incoming()      {}
func (*Subscribe) incoming() {}

// Outgoing is a host-to-client message: *Event or *Response.
type Outgoing interface {
	outgoing()
}

// Event is a module event forwarded to the client.
type Event struct {
	Module    string `json:"module"`
	Name      string `json:"name"`
	Version   uint32 `json:"version"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// Response answers a Call, echoing its request_id verbatim.
type Response struct {
	RequestID string `json:"request_id"`
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
}

func (*Event) outgoing()    {}
func (*Response) outgoing() {}

// ParseIncoming decodes one envelope. Unknown or missing types are malformed.
func ParseIncoming(data []byte) (Incoming, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, verrors.Malformed(verrors.PhaseWire, "parsing envelope", err)
	}
	switch head.Type {
	case TypeCall:
		c := &Call{Version: 1}
		if err := json.Unmarshal(data, c); err != nil {
			return nil, verrors.Malformed(verrors.PhaseWire, "parsing call", err)
		}
		return c, nil
	case TypeSubscribe:
		s := &Subscribe{}
		if err := json.Unmarshal(data, s); err != nil {
			return nil, verrors.Malformed(verrors.PhaseWire, "parsing subscribe", err)
		}
		return s, nil
	case "":
		return nil, verrors.New(verrors.PhaseWire, verrors.KindMalformed).
			Detail("envelope missing type").Build()
	default:
		return nil, verrors.New(verrors.PhaseWire, verrors.KindMalformed).
			Detail("unknown envelope type '%s'", head.Type).Build()
	}
}

// EncodeOutgoing serializes an envelope with its type tag.
func EncodeOutgoing(msg Outgoing) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch m := msg.(type) {
	case *Event:
		out, err = json.Marshal(struct {
			Type string `json:"type"`
			*Event
		}{TypeEvent, m})
	case *Response:
		out, err = json.Marshal(struct {
			Type string `json:"type"`
			*Response
		}{TypeResponse, m})
	default:
		return nil, verrors.New(verrors.PhaseWire, verrors.KindInvalidInput).
			Detail("unsupported outgoing message %T", msg).Build()
	}
	if err != nil {
		return nil, verrors.Malformed(verrors.PhaseWire, "encoding envelope", err)
	}
	return out, nil
}

// EncodeIncoming serializes a client-side envelope with its type tag. Used by
// clients and round-trip tests; the host itself only parses inbound traffic.
func EncodeIncoming(msg Incoming) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch m := msg.(type) {
	case *Call:
		out, err = json.Marshal(struct {
			Type string `json:"type"`
			*Call
		}{TypeCall, m})
	case *Subscribe:
		out, err = json.Marshal(struct {
			Type string `json:"type"`
			*Subscribe
		}{TypeSubscribe, m})
	default:
		return nil, verrors.New(verrors.PhaseWire, verrors.KindInvalidInput).
			Detail("unsupported incoming message %T", msg).Build()
	}
	if err != nil {
		return nil, verrors.Malformed(verrors.PhaseWire, "encoding envelope", err)
	}
	return out, nil
}

// ParseOutgoing decodes a host-side envelope. Used by clients such as the
// event monitor.
func ParseOutgoing(data []byte) (Outgoing, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, verrors.Malformed(verrors.PhaseWire, "parsing envelope", err)
	}
	switch head.Type {
	case TypeEvent:
		e := &Event{}
		if err := json.Unmarshal(data, e); err != nil {
			return nil, verrors.Malformed(verrors.PhaseWire, "parsing event", err)
		}
		return e, nil
	case TypeResponse:
		r := &Response{}
		if err := json.Unmarshal(data, r); err != nil {
			return nil, verrors.Malformed(verrors.PhaseWire, "parsing response", err)
		}
		return r, nil
	default:
		return nil, verrors.New(verrors.PhaseWire, verrors.KindMalformed).
			Detail("unknown envelope type '%s'", head.Type).Build()
	}
}

// EventFrom wraps a bus event for the wire, stamping the current time.
func EventFrom(e bus.Event) *Event {
	return &Event{
		Module:    e.Source,
		Name:      e.Name,
		Version:   1,
		Data:      e.Data,
		Timestamp: time.Now().Unix(),
	}
}
