// Package remote exposes a dispatcher over MQTT.
//
// Under the topic prefix of a device:
//
//	cmd      command lines to execute, e.g. "fan 128"
//	console  console output, one message per line
//	error    command failures
//	status   "online" / "offline", retained
package remote

import (
	"net/url"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// Handler is the callback when a message is received.
type Handler func(topic string, payload []byte)

// Publisher sends payloads to topics relative to a prefix.
type Publisher interface {
	Pub(topic string, payload []byte) paho.Token
}

// Queue wraps the MQTT client with prefixed topics.
type Queue struct {
	Client      paho.Client
	TopicPrefix string

	subsLock sync.RWMutex
	subs     map[string][]Handler
}

// MatchTopic matches topic with a pattern which may contain + and a trailing #.
func MatchTopic(topic, pattern string) bool {
	tokensT, tokensP := strings.Split(topic, "/"), strings.Split(pattern, "/")
	for i, token := range tokensP {
		if token == "#" && i+1 == len(tokensP) {
			return true
		}
		if i >= len(tokensT) {
			return false
		}
		if token != "+" && token != tokensT[i] {
			return false
		}
	}
	return len(tokensP) == len(tokensT)
}

// ClientOptionsFromURL creates ClientOptions from URL.
// The URL path becomes the topic prefix.
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	server := u.Scheme
	if server == "" || server == "mqtt" {
		server = "tcp"
	}
	server += "://" + u.Host

	topicPrefix := strings.TrimPrefix(u.Path, "/")
	if topicPrefix != "" && !strings.HasSuffix(topicPrefix, "/") {
		topicPrefix += "/"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(server).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if clientID := u.Query().Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}
	return opts, topicPrefix, nil
}

// NewQueue creates a Queue. options is completed with the connection
// handlers and must not be used for another client.
func NewQueue(options *paho.ClientOptions, topicPrefix string) *Queue {
	q := &Queue{TopicPrefix: topicPrefix, subs: make(map[string][]Handler)}
	options.SetOnConnectHandler(q.onConnect)
	options.SetConnectionLostHandler(func(_ paho.Client, err error) {
		glog.Warningf("mqtt: connection lost: %v", err)
	})
	q.Client = paho.NewClient(options)
	return q
}

// Connect connects the client.
func (q *Queue) Connect() paho.Token {
	return q.Client.Connect()
}

// Close implements io.Closer.
func (q *Queue) Close() error {
	q.Client.Disconnect(250)
	return nil
}

// Sub subscribes a topic pattern. Patterns are resubscribed on reconnect.
func (q *Queue) Sub(pattern string, handler Handler) paho.Token {
	q.subsLock.Lock()
	handlers := q.subs[pattern]
	q.subs[pattern] = append(handlers, handler)
	q.subsLock.Unlock()
	if len(handlers) > 0 || !q.Client.IsConnected() {
		return &paho.DummyToken{}
	}
	glog.V(2).Infof("SUB %q", q.TopicPrefix+pattern)
	return q.Client.Subscribe(q.TopicPrefix+pattern, 0, q.receive)
}

// Pub implements Publisher.
func (q *Queue) Pub(topic string, payload []byte) paho.Token {
	return q.PubWith(topic, payload, 0, false)
}

// PubWith publishes with QoS and retain settings.
func (q *Queue) PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token {
	glog.V(2).Infof("PUB %q", q.TopicPrefix+topic)
	return q.Client.Publish(q.TopicPrefix+topic, qos, retain, payload)
}

func (q *Queue) onConnect(c paho.Client) {
	glog.Info("mqtt: connected")
	filters := make(map[string]byte)
	q.subsLock.RLock()
	for pattern := range q.subs {
		filters[q.TopicPrefix+pattern] = 0
	}
	q.subsLock.RUnlock()
	if len(filters) > 0 {
		for key := range filters {
			glog.V(2).Infof("SUB %q", key)
		}
		c.SubscribeMultiple(filters, q.receive)
	}
}

func (q *Queue) receive(_ paho.Client, msg paho.Message) {
	q.dispatch(msg.Topic(), msg.Payload())
}

func (q *Queue) dispatch(topic string, payload []byte) {
	if !strings.HasPrefix(topic, q.TopicPrefix) {
		return
	}
	glog.V(2).Infof("RCV %q", topic)
	topic = topic[len(q.TopicPrefix):]
	var handlers []Handler
	q.subsLock.RLock()
	for pattern, subs := range q.subs {
		if MatchTopic(topic, pattern) {
			handlers = append(handlers, subs...)
		}
	}
	q.subsLock.RUnlock()
	for _, h := range handlers {
		h(topic, payload)
	}
}
