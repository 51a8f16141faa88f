package mavlink

import (
	"context"
	"errors"
	"fmt"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
)

// ErrClosed is returned by a transport after Close.
var ErrClosed = errors.New("transport closed")

// Transport moves decoded MAVLink messages to and from the autopilot.
type Transport interface {
	// Receive blocks until a message arrives or ctx is done.
	Receive(ctx context.Context) (message.Message, error)
	// TryReceive returns a queued message without blocking.
	TryReceive() (message.Message, bool)
	Send(msg message.Message) error
	Close() error
}

// NodeTransport is a gomavlib node listening for one TCP client.
type NodeTransport struct {
	node   *gomavlib.Node
	closed chan struct{}
}

// Listen starts a MAVLink v2 TCP server on addr using the common dialect.
func Listen(addr string) (*NodeTransport, error) {
	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints: []gomavlib.EndpointConf{
			gomavlib.EndpointTCPServer{Address: addr},
		},
		Dialect:          common.Dialect,
		OutVersion:       gomavlib.V2,
		OutSystemID:      1,
		HeartbeatDisable: true,
	})
	if err != nil {
		return nil, fmt.Errorf("error starting mavlink server on %s: %w", addr, err)
	}
	return &NodeTransport{node: node, closed: make(chan struct{})}, nil
}

// Receive returns the next decoded message, skipping channel events.
func (t *NodeTransport) Receive(ctx context.Context) (message.Message, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.closed:
			return nil, ErrClosed
		case evt, ok := <-t.node.Events():
			if !ok {
				return nil, ErrClosed
			}
			if frm, isFrame := evt.(*gomavlib.EventFrame); isFrame {
				return frm.Message(), nil
			}
		}
	}
}

// TryReceive returns the next queued message, if any.
func (t *NodeTransport) TryReceive() (message.Message, bool) {
	for {
		select {
		case evt, ok := <-t.node.Events():
			if !ok {
				return nil, false
			}
			if frm, isFrame := evt.(*gomavlib.EventFrame); isFrame {
				return frm.Message(), true
			}
		default:
			return nil, false
		}
	}
}

// Send writes msg to every connected client.
func (t *NodeTransport) Send(msg message.Message) error {
	select {
	case <-t.closed:
		return ErrClosed
	default:
	}
	t.node.WriteMessageAll(msg)
	return nil
}

// Close stops the server. It is safe to call more than once.
func (t *NodeTransport) Close() error {
	select {
	case <-t.closed:
		return nil
	default:
	}
	close(t.closed)
	t.node.Close()
	return nil
}
