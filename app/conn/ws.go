package conn

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

// WSDialer dials job channels over websocket, ws(s)://host/ws/{job_id}
type WSDialer struct {
	BaseURL string // backend address, http(s) or ws(s)
	Dialer  *websocket.Dialer
}

// Dial opens websocket channel of the job
func (d WSDialer) Dial(ctx context.Context, jobID string) (Channel, error) {
	u, err := WSURL(d.BaseURL, jobID)
	if err != nil {
		return nil, err
	}
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, u, nil)
	if resp != nil && resp.Body != nil {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("[WARN] failed to close handshake body: %v", closeErr)
		}
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s, status %d: %w", u, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	return &wsChannel{conn: conn}, nil
}

// WSURL makes websocket url of the job from backend address
func WSURL(baseURL, jobID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme in %q", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/" + jobID
	u.RawPath = ""
	u.RawQuery, u.Fragment = "", ""
	return u.String(), nil
}

// wsChannel is a Channel over gorilla websocket, writes are serialized
type wsChannel struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *wsChannel) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsChannel) WriteText(text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// Close sends close frame and closes the connection, repeated calls return the first result
func (c *wsChannel) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
			log.Printf("[DEBUG] write close frame, %v", err)
		}
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
