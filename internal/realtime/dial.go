package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	ws "github.com/coder/websocket"
)

// Conn is a client-side change feed read from a websocket.
type Conn struct {
	conn   *ws.Conn
	ch     chan Event
	cancel context.CancelFunc
	once   sync.Once
}

var _ Stream = (*Conn)(nil)

// Dial connects to a session feed at baseURL (http, https, ws or wss) and
// starts decoding events. The returned stream ends when ctx is done, Close
// is called or the server goes away.
func Dial(ctx context.Context, baseURL, sessionID string) (*Conn, error) {
	u := strings.TrimSuffix(baseURL, "/") + "/ws/" + sessionID
	u = strings.Replace(u, "http://", "ws://", 1)
	u = strings.Replace(u, "https://", "wss://", 1)

	conn, _, err := ws.Dial(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Conn{
		conn:   conn,
		ch:     make(chan Event, sendBufferSize),
		cancel: cancel,
	}
	go c.readPump(ctx)
	return c, nil
}

// C returns the event channel.
func (c *Conn) C() <-chan Event {
	return c.ch
}

// Close closes the connection and ends the stream.
func (c *Conn) Close() {
	c.once.Do(func() {
		c.cancel()
		c.conn.Close(ws.StatusNormalClosure, "")
	})
}

func (c *Conn) readPump(ctx context.Context) {
	defer close(c.ch)
	defer c.Close()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		var e Event
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		select {
		case c.ch <- e:
		case <-ctx.Done():
			return
		}
	}
}
