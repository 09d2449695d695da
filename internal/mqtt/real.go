package mqtt

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/sweeney/iono/internal/logic"
)

// Options configures the broker connection.
type Options struct {
	Broker   string
	ClientID string
	// BufferSize is how many messages are kept while disconnected.
	BufferSize int
}

// DefaultBufferSize holds a few minutes of busy channel traffic.
const DefaultBufferSize = 512

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// RealPublisher publishes to an actual MQTT broker and receives output
// commands from it. Messages published while disconnected are buffered and
// replayed in order on reconnect.
type RealPublisher struct {
	client   paho.Client
	logger   *log.Logger
	commands chan Command

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher for the given broker. If the broker
// is not reachable yet, the client keeps retrying in the background and
// messages are buffered until it connects.
func NewRealPublisher(opts Options, logger *log.Logger) (*RealPublisher, error) {
	if opts.ClientID == "" {
		opts.ClientID = "iono-io"
	}
	if opts.BufferSize == 0 {
		opts.BufferSize = DefaultBufferSize
	}

	p := &RealPublisher{
		logger:   logger,
		commands: make(chan Command, 16),
		buf:      newRingBuffer(opts.BufferSize),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "LWT"})
	if err != nil {
		return nil, errors.Wrap(err, "format will payload")
	}

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("connection lost", "err", err)
		})

	p.client = paho.NewClient(co)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		logger.Warn("broker not reachable yet, buffering", "broker", opts.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrap(err, "connect to broker")
	}
	return p, nil
}

// onConnect runs on every (re)connect: subscribe to commands and replay
// anything buffered while offline.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.logger.Info("connected")

	token := c.Subscribe(TopicSetPrefix+"+", 1, p.handleCommand)
	if !token.WaitTimeout(publishTimeout) {
		p.logger.Error("subscribe timeout", "topic", TopicSetPrefix+"+")
	} else if err := token.Error(); err != nil {
		p.logger.Error("subscribe failed", "err", err)
	}

	p.mu.Lock()
	dropped := p.buf.dropped
	pending := p.buf.drainAll()
	p.mu.Unlock()

	if len(pending) > 0 {
		p.logger.Info("replaying buffered messages", "count", len(pending), "dropped", dropped)
	}
	for _, m := range pending {
		if err := p.publishNow(m); err != nil {
			p.logger.Error("replay failed", "topic", m.topic, "err", err)
		}
	}
}

func (p *RealPublisher) handleCommand(_ paho.Client, msg paho.Message) {
	cmd, err := ParseCommand(msg.Topic(), msg.Payload())
	if err != nil {
		p.logger.Warn("ignoring command", "err", err)
		return
	}
	select {
	case p.commands <- cmd:
	default:
		p.logger.Warn("command queue full, dropping", "channel", cmd.Channel)
	}
}

// Commands delivers output commands received from the broker.
func (p *RealPublisher) Commands() <-chan Command {
	return p.commands
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Publish sends a channel event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return errors.Wrap(err, "format payload")
	}
	// QoS 0 (at-most-once), not retained
	return p.send(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return errors.Wrap(err, "format system payload")
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(m bufferedMsg) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		if p.buf.push(m) && p.buf.dropped == 1 {
			p.logger.Warn("buffer full, dropping oldest", "capacity", len(p.buf.buf))
		}
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.publishNow(m)
}

func (p *RealPublisher) publishNow(m bufferedMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.Errorf("publish %s timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "publish %s", m.topic)
	}
	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
