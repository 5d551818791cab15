package remote

import (
	"bytes"
	"sync"
)

// TopicConsole receives console lines.
const TopicConsole = "console"

// Console is an io.Writer publishing every complete line.
type Console struct {
	Pub   Publisher
	Topic string

	buf  bytes.Buffer
	lock sync.Mutex
}

// NewConsole creates a Console publishing to TopicConsole.
func NewConsole(pub Publisher) *Console {
	return &Console{Pub: pub, Topic: TopicConsole}
}

// Write implements io.Writer.
func (c *Console) Write(p []byte) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.buf.Write(p)
	for {
		data := c.buf.Bytes()
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := append([]byte(nil), data[:i]...)
		c.buf.Next(i + 1)
		c.Pub.Pub(c.Topic, line)
	}
	return len(p), nil
}

// Flush publishes a pending incomplete line.
func (c *Console) Flush() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.buf.Len() > 0 {
		c.Pub.Pub(c.Topic, append([]byte(nil), c.buf.Bytes()...))
		c.buf.Reset()
	}
}
