// internal/registry/mqtt/mirror_test.go
package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/solaredge-bridge/internal/registry"
)

var _ registry.Listener = (*Mirror)(nil)

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type message struct {
	topic    string
	retained bool
	payload  string
}

type fakePublisher struct {
	sent  []message
	token *fakeToken
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	p.sent = append(p.sent, message{topic: topic, retained: retained, payload: payload.(string)})
	if p.token != nil {
		return p.token
	}
	return &fakeToken{}
}

func newMirror() (*Mirror, *fakePublisher) {
	pub := &fakePublisher{}
	return New(pub, Options{Topic: "solaredge", DiscoveryPrefix: "homeassistant", Node: "se1"}), pub
}

func TestMirror_EntryCreatedPublishesDiscovery(t *testing.T) {
	m, pub := newMirror()

	m.EntryCreated(14, "Inverter Frequency", registry.Descriptor{
		Type: 0xF3, Subtype: 0x1F, Options: map[string]string{"Custom": "1;Hz"},
	})

	require.Len(t, pub.sent, 1)
	msg := pub.sent[0]
	assert.Equal(t, "homeassistant/sensor/se1/14/config", msg.topic)
	assert.True(t, msg.retained)

	var conf HassAutoconfig
	require.NoError(t, json.Unmarshal([]byte(msg.payload), &conf))
	assert.Equal(t, "Inverter Frequency", conf.Name)
	assert.Equal(t, "Hz", conf.UnitOfMeasurement)
	assert.Equal(t, "frequency", conf.DeviceClass)
	assert.Equal(t, "solaredge/14/state", conf.StatusTopic)
	assert.Equal(t, "solaredge/status", conf.AvailabilityTopic)
	assert.Equal(t, "solaredge.se1.14", conf.UniqueID)
	assert.Equal(t, "se1", conf.Device.IDs)
}

func TestMirror_CompoundValuesGetTemplate(t *testing.T) {
	m, pub := newMirror()

	m.EntryCreated(18, "Inverter Total Energy", registry.Descriptor{Type: 0xF3, Subtype: 0x1D, Switchtype: 4})

	var conf HassAutoconfig
	require.NoError(t, json.Unmarshal([]byte(pub.sent[0].payload), &conf))
	assert.Equal(t, "energy", conf.DeviceClass)
	assert.Equal(t, "total_increasing", conf.StateClass)
	assert.Equal(t, lastPart, conf.ValueTemplate)
}

func TestMirror_EntryUpdatedPublishesState(t *testing.T) {
	m, pub := newMirror()

	m.EntryUpdated(13, registry.Descriptor{}, "2300.00")

	require.Len(t, pub.sent, 1)
	assert.Equal(t, message{topic: "solaredge/13/state", retained: true, payload: "2300.00"}, pub.sent[0])
}

// pendingToken stays unacknowledged until release is closed.
type pendingToken struct {
	fakeToken
	release chan struct{}
}

func (t *pendingToken) WaitTimeout(time.Duration) bool {
	<-t.release
	return true
}

func TestMirror_ListenerDoesNotWaitForBroker(t *testing.T) {
	m, pub := newMirror()
	token := &pendingToken{release: make(chan struct{})}
	defer close(token.release)

	blocking := &blockingPublisher{fakePublisher: pub, token: token}
	m.pub = blocking

	done := make(chan struct{})
	go func() {
		m.EntryCreated(14, "Inverter Frequency", registry.Descriptor{Type: 0xF3, Subtype: 0x1F})
		m.EntryUpdated(14, registry.Descriptor{}, "50.01")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener callbacks waited for the broker")
	}
	assert.Len(t, pub.sent, 2)
}

// blockingPublisher records like fakePublisher but hands out a pending token.
type blockingPublisher struct {
	*fakePublisher
	token paho.Token
}

func (p *blockingPublisher) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	p.fakePublisher.Publish(topic, qos, retained, payload)
	return p.token
}

func TestMirror_SetAvailableOnlyOnChange(t *testing.T) {
	m, pub := newMirror()

	require.NoError(t, m.SetAvailable(true))
	require.NoError(t, m.SetAvailable(true))
	require.NoError(t, m.SetAvailable(false))

	require.Len(t, pub.sent, 2)
	assert.Equal(t, "online", pub.sent[0].payload)
	assert.Equal(t, "offline", pub.sent[1].payload)
	assert.Equal(t, "solaredge/status", pub.sent[1].topic)

	require.NoError(t, m.republishAvailability())
	assert.Equal(t, "offline", pub.sent[2].payload)
}

func TestMirror_Announce(t *testing.T) {
	m, pub := newMirror()

	err := m.Announce([]registry.Entry{
		{ID: 1, Name: "Inverter Status", Descriptor: registry.Descriptor{Type: 0xF3, Subtype: 0x13}, Value: "Producing"},
		{ID: 2, Name: "Inverter Vendor Status", Descriptor: registry.Descriptor{Type: 0xF3, Subtype: 0x13}},
	})
	require.NoError(t, err)

	topics := []string{}
	for _, msg := range pub.sent {
		topics = append(topics, msg.topic)
	}
	assert.Equal(t, []string{
		"homeassistant/sensor/se1/1/config",
		"solaredge/1/state",
		"homeassistant/sensor/se1/2/config",
	}, topics)
}

func TestMirror_PublishErrors(t *testing.T) {
	m, pub := newMirror()

	pub.token = &fakeToken{timeout: true}
	assert.ErrorIs(t, m.SetAvailable(true), ErrTimeout)

	pub.token = &fakeToken{err: errors.New("not connected")}
	assert.ErrorContains(t, m.Announce([]registry.Entry{{ID: 1, Name: "x"}}), "not connected")
}

func TestSensorFor(t *testing.T) {
	assert.Equal(t, "power", sensorFor(registry.Descriptor{Type: 0xF8, Subtype: 0x01}).class)
	assert.Equal(t, "A", sensorFor(registry.Descriptor{Type: 0xF3, Subtype: 0x17}).unit)
	assert.Equal(t, sensor{}, sensorFor(registry.Descriptor{Type: 0xF3, Subtype: 0x13}))
	assert.Equal(t, "VArh", sensorFor(registry.Descriptor{
		Type: 0xF3, Subtype: 0x1F, Options: map[string]string{"Custom": "1;VArh"},
	}).unit)
}
