package bridge

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/tarm/serial"
	"golang.org/x/net/websocket"

	"github.com/robotalks/cartbus/pkg/link"
)

// DefaultBaud is used when the serial URL has no baud parameter.
const DefaultBaud = 115200

// serialReadTimeout makes serial reads return periodically so the
// link can run its sync timer without a reader goroutine.
const serialReadTimeout = 50 * time.Millisecond

// Conn is an opened bridge.
type Conn struct {
	*Transport
	io.Closer
}

// Open connects to a bridge by URL:
//
//	serial:///dev/ttyUSB0?baud=115200
//	ws://host:port/path
func Open(rawURL string) (*Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid bridge URL: %v", err)
	}
	var stream io.ReadWriteCloser
	var polling bool
	switch u.Scheme {
	case "serial":
		if stream, err = openSerial(u); err != nil {
			return nil, err
		}
		polling = true
	case "ws", "wss":
		origin := "http://" + u.Host + "/"
		if stream, err = websocket.Dial(rawURL, "", origin); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, u.Scheme)
	}
	glog.Infof("bridge: connected %s", rawURL)
	l := link.New(stream)
	l.ReadTimeout = polling
	return &Conn{Transport: New(link.NewClient(l)), Closer: stream}, nil
}

func openSerial(u *url.URL) (io.ReadWriteCloser, error) {
	name := u.Host + u.Path
	baud := DefaultBaud
	if val := u.Query().Get("baud"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid baud %q: %v", val, err)
		}
		baud = n
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: serialReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %v", name, err)
	}
	return &serialStream{port}, nil
}

// serialStream turns the EOF of an expired read timeout into an
// empty read, which the link treats as a timeout tick.
type serialStream struct {
	*serial.Port
}

func (s *serialStream) Read(p []byte) (int, error) {
	n, err := s.Port.Read(p)
	if n == 0 && err == io.EOF {
		return 0, nil
	}
	return n, err
}
