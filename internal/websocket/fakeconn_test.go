package websocket

import (
	"errors"
	"sync"
	"time"
)

type frame struct {
	Type int
	Data []byte
	Err  error
}

// fakeConn replays scripted reads and records writes. Once the script
// runs out every read fails, which ends a read pump.
type fakeConn struct {
	mu        sync.Mutex
	reads     []frame
	writes    []frame
	Closed    bool
	ReadLimit int64
}

var errFakeClosed = errors.New("fake connection closed")

func newFakeConn(script ...frame) *fakeConn {
	return &fakeConn{reads: script}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Closed {
		return errFakeClosed
	}
	c.writes = append(c.writes, frame{Type: messageType, Data: data})
	return nil
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Closed {
		return 0, nil, errFakeClosed
	}
	if len(c.reads) == 0 {
		return 0, nil, errors.New("script exhausted")
	}
	f := c.reads[0]
	c.reads = c.reads[1:]
	return f.Type, f.Data, f.Err
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.Closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) SetReadLimit(limit int64) {
	c.mu.Lock()
	c.ReadLimit = limit
	c.mu.Unlock()
}

func (c *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetPongHandler(func(string) error) {}
func (c *fakeConn) RemoteAddr() string                { return "127.0.0.1:50000" }

func (c *fakeConn) written() []frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]frame(nil), c.writes...)
}
