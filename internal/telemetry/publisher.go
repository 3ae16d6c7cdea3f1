package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 5 * time.Second

// FetchRecord is the outcome of one refresh-cycle fetch for a station.
type FetchRecord struct {
	Cycle        string    `json:"cycle"`
	Station      string    `json:"station"`
	Provider     string    `json:"provider,omitempty"`
	Category     string    `json:"category,omitempty"`
	WindSpeedKt  int       `json:"wind_speed_kt,omitempty"`
	WindGustKt   int       `json:"wind_gust_kt,omitempty"`
	Thunderstorm bool      `json:"thunderstorm,omitempty"`
	Color        string    `json:"color,omitempty"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// StatusRecord is the current display condition of a station, retained on
// the broker so late subscribers see the panel state immediately.
type StatusRecord struct {
	Station   string    `json:"station"`
	State     string    `json:"state"`
	Failures  int       `json:"failures"`
	Color     string    `json:"color"`
	Timestamp time.Time `json:"timestamp"`
}

// Options configures the MQTT connection.
type Options struct {
	Enabled  bool
	Broker   string
	Port     int
	ClientID string
}

// Publisher ships fetch and status records to an MQTT broker. Delivery is
// best-effort throughout: a disabled publisher, a down broker, or a slow
// publish drops the record with at most a debug log. Nothing here may ever
// block or fail the display loop.
type Publisher struct {
	client  mqtt.Client
	logger  *slog.Logger
	enabled bool

	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(opts Options, logger *slog.Logger) *Publisher {
	p := &Publisher{
		logger:  logger,
		enabled: opts.Enabled,
		stopCh:  make(chan struct{}),
	}
	if !opts.Enabled {
		return p
	}

	mopts := mqtt.NewClientOptions()
	mopts.AddBroker(fmt.Sprintf("tcp://%s:%d", opts.Broker, opts.Port))
	mopts.SetClientID(opts.ClientID)

	mopts.SetCleanSession(true)

	mopts.SetAutoReconnect(true)
	mopts.SetConnectRetry(true)
	mopts.SetConnectRetryInterval(5 * time.Second)
	mopts.SetMaxReconnectInterval(60 * time.Second)

	// Keepalive / timeouts
	mopts.SetKeepAlive(30 * time.Second)
	mopts.SetPingTimeout(10 * time.Second)

	// Callbacks keep internal state accurate
	mopts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		logger.Info("mqtt connected", "broker", opts.Broker, "port", opts.Port)
	})

	mopts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(mopts)
	return p
}

// Connect establishes the broker connection, waiting for the initial
// attempt while respecting ctx and Disconnect(). With connect-retry on,
// paho keeps trying in the background after this returns.
func (p *Publisher) Connect(ctx context.Context) error {
	if !p.enabled {
		return nil
	}

	select {
	case <-p.stopCh:
		return fmt.Errorf("publisher stopped")
	default:
	}

	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			// OnConnectHandler sets connected=true.
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return fmt.Errorf("publisher stopped")
		default:
		}
	}
}

// ReportFetch publishes one refresh-cycle outcome on metar/<code>/fetch.
func (p *Publisher) ReportFetch(rec FetchRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	p.publish(fmt.Sprintf("metar/%s/fetch", rec.Station), 0, false, rec)
}

// ReportStatus publishes the retained station condition on
// metar/<code>/status.
func (p *Publisher) ReportStatus(rec StatusRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	p.publish(fmt.Sprintf("metar/%s/status", rec.Station), 1, true, rec)
}

// publish fires without waiting; token outcomes are observed from a
// goroutine so a slow broker never stalls the caller.
func (p *Publisher) publish(topic string, qos byte, retained bool, v any) {
	if p == nil || !p.enabled || !p.IsConnected() {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Debug("telemetry marshal failed", "topic", topic, "error", err)
		return
	}

	token := p.client.Publish(topic, qos, retained, data)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			p.logger.Debug("telemetry publish timed out", "topic", topic)
			return
		}
		if err := token.Error(); err != nil {
			p.logger.Debug("telemetry publish dropped", "topic", topic, "error", err)
		}
	}()
}

// IsConnected returns whether the publisher has a live broker connection.
func (p *Publisher) IsConnected() bool {
	if !p.enabled {
		return false
	}
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect stops the publisher and closes the MQTT connection.
// Idempotent and safe to call multiple times.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	if p.client != nil {
		// Paho quiesces in-flight work for the given ms.
		p.client.Disconnect(250)
	}

	p.setConnected(false)
	if p.enabled {
		p.logger.Info("mqtt disconnected")
	}
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
