package realtime

import (
	"context"
	"encoding/json"
	"time"

	ws "github.com/coder/websocket"
)

const pingInterval = 30 * time.Second

// client forwards one session subscription over a websocket connection.
type client struct {
	conn *ws.Conn
	sub  *Subscription
}

// run starts the write pump and runs the read pump. It blocks until the
// connection is closed or the subscription ends, then unsubscribes.
func (c *client) run(ctx context.Context) {
	defer c.sub.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		c.writePump(ctx)
		cancel()
	}()
	c.readPump(ctx)
}

// readPump reads and discards incoming messages; the feed is one-way.
func (c *client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

// writePump drains the subscription and sends periodic pings to detect
// stale connections.
func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-c.sub.C():
			if !ok {
				c.conn.Close(ws.StatusNormalClosure, "subscription closed")
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if err := c.conn.Write(ctx, ws.MessageText, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
