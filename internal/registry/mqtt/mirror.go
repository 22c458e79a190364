// internal/registry/mqtt/mirror.go
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/tamzrod/solaredge-bridge/internal/registry"
)

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("mqtt: publish timed out")

// Publisher is the part of paho.Client the mirror uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Options configures a Mirror.
type Options struct {
	Topic           string // state root, e.g. solaredge
	DiscoveryPrefix string // e.g. homeassistant
	Node            string // device id inside Home Assistant
	Timeout         time.Duration
}

// Mirror publishes registry entries to Home Assistant.
// It implements registry.Listener.
type Mirror struct {
	pub  Publisher
	opts Options

	mu     sync.Mutex
	online bool

	// last delivered engine status
	lastStatus  string
	lastHealth  uint16
	healthSent  bool
	statusDirty bool
}

func New(pub Publisher, opts Options) *Mirror {
	if opts.Node == "" {
		opts.Node = "solaredge"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Mirror{pub: pub, opts: opts}
}

// ---- topics ----

func (m *Mirror) AvailabilityTopic() string { return m.opts.Topic + "/status" }

func (m *Mirror) StateTopic(id int) string { return fmt.Sprintf("%s/%d/state", m.opts.Topic, id) }

func (m *Mirror) ConfigTopic(id int) string {
	return fmt.Sprintf("%s/sensor/%s/%d/config", m.opts.DiscoveryPrefix, m.opts.Node, id)
}

// ---- registry.Listener ----

// Listener callbacks run inside a poll tick. They hand the message to paho
// and return; the acknowledgement is awaited in the background.

func (m *Mirror) EntryCreated(id int, name string, d registry.Descriptor) {
	payload, err := m.discovery(id, name, d)
	if err != nil {
		log.WithError(err).WithField("id", id).Warn("mqtt discovery encode failed")
		return
	}
	m.publishAsync(m.ConfigTopic(id), payload)
}

func (m *Mirror) EntryUpdated(id int, _ registry.Descriptor, value string) {
	m.publishAsync(m.StateTopic(id), value)
}

// ---- lifecycle ----

// Announce republishes discovery config and state for existing entries,
// e.g. a persisted registry after restart.
func (m *Mirror) Announce(entries []registry.Entry) error {
	var errs []error
	for _, e := range entries {
		if err := m.announce(e.ID, e.Name, e.Descriptor); err != nil {
			errs = append(errs, err)
			continue
		}
		if e.Value == "" {
			continue
		}
		if err := m.publish(m.StateTopic(e.ID), e.Value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetAvailable publishes online/offline when the state changed.
func (m *Mirror) SetAvailable(online bool) error {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return nil
	}
	m.online = online
	m.mu.Unlock()

	return m.publish(m.AvailabilityTopic(), availability(online))
}

// republishAvailability re-sends the current state, e.g. after a reconnect.
func (m *Mirror) republishAvailability() error {
	m.mu.Lock()
	online := m.online
	m.mu.Unlock()
	return m.publish(m.AvailabilityTopic(), availability(online))
}

// ---- helpers ----

func (m *Mirror) announce(id int, name string, d registry.Descriptor) error {
	payload, err := m.discovery(id, name, d)
	if err != nil {
		return err
	}
	return m.publish(m.ConfigTopic(id), payload)
}

func (m *Mirror) discovery(id int, name string, d registry.Descriptor) (string, error) {
	s := sensorFor(d)
	conf := HassAutoconfig{
		DeviceClass:       s.class,
		UnitOfMeasurement: s.unit,
		StateClass:        s.state,
		ValueTemplate:     s.template,
		Name:              name,
		StatusTopic:       m.StateTopic(id),
		AvailabilityTopic: m.AvailabilityTopic(),
		UniqueID:          fmt.Sprint(m.opts.Topic, ".", m.opts.Node, ".", id),
		Device: HassAutoconfigDevice{
			IDs:  m.opts.Node,
			Name: m.opts.Node,
		},
	}

	payload, err := json.Marshal(&conf)
	if err != nil {
		return "", fmt.Errorf("mqtt: discovery %d: %w", id, err)
	}
	return string(payload), nil
}

func (m *Mirror) publish(topic, payload string) error {
	token := m.pub.Publish(topic, 0, true, payload)
	if !token.WaitTimeout(m.opts.Timeout) {
		return fmt.Errorf("%w: %s", ErrTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: publish %s: %w", topic, err)
	}
	return nil
}

// publishAsync hands the message to paho and waits for the outcome in
// a goroutine, so the caller never blocks on the broker.
func (m *Mirror) publishAsync(topic, payload string) {
	token := m.pub.Publish(topic, 0, true, payload)
	go func() {
		if !token.WaitTimeout(m.opts.Timeout) {
			log.WithField("topic", topic).Warn(ErrTimeout.Error())
			return
		}
		if err := token.Error(); err != nil {
			log.WithError(err).WithField("topic", topic).Warn("mqtt publish failed")
		}
	}()
}

func availability(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

// ---- broker connection ----

// ClientConfig is the broker side of the mirror.
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Dial connects to the broker with a retained offline will and returns
// the mirror together with the paho client. onConnect runs after every
// (re)connect, after availability was republished.
func Dial(cc ClientConfig, opts Options, onConnect func(*Mirror)) (*Mirror, paho.Client, error) {
	clientID := cc.ClientID
	if clientID == "" {
		clientID = "solaredge-bridge-" + uuid.NewString()
	}

	m := New(nil, opts)

	po := paho.NewClientOptions().AddBroker(cc.Broker).SetClientID(clientID)
	po.SetUsername(cc.Username)
	po.SetPassword(cc.Password)
	po.SetAutoReconnect(true)
	po.SetWill(m.AvailabilityTopic(), "offline", 0, true)
	po.OnConnect = func(client paho.Client) {
		log.WithField("broker", cc.Broker).Info("mqtt connected")
		if err := m.republishAvailability(); err != nil {
			log.WithError(err).Warn("mqtt availability publish failed")
		}
		if onConnect != nil {
			onConnect(m)
		}
	}
	po.OnConnectionLost = func(client paho.Client, err error) {
		log.WithError(err).Warn("mqtt connection lost")
	}

	client := paho.NewClient(po)
	m.pub = client

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, nil, fmt.Errorf("mqtt: connect %s: %w", cc.Broker, token.Error())
	}
	return m, client, nil
}
