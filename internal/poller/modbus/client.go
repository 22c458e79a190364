// internal/poller/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mb "github.com/goburrow/modbus"

	"github.com/tamzrod/solaredge-bridge/internal/schema"
)

var (
	ErrNotConnected = errors.New("modbus client: not connected")
	ErrNotSunSpec   = errors.New("modbus client: SunSpec marker not found")
)

// Config is minimal transport config.
type Config struct {
	Transport string // tcp (default) or rtu
	Endpoint  string // host:port for tcp
	Device    string // serial device for rtu
	BaudRate  int
	UnitID    uint8
	Timeout   time.Duration
}

// registerReader is the only Modbus function the client needs (FC 3).
type registerReader interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
}

// conn is the handler lifecycle.
type conn interface {
	Connect() error
	Close() error
}

// Client implements the poller's Client on top of goburrow/modbus.
// Inverter, meters and batteries share one connection.
type Client struct {
	mu        sync.Mutex
	conn      conn
	regs      registerReader
	connected bool
}

// New builds a client. It does not connect.
func New(cfg Config) (*Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Transport)) {
	case "", "tcp":
		if cfg.Endpoint == "" {
			return nil, errors.New("modbus client: endpoint required")
		}
		h := mb.NewTCPClientHandler(cfg.Endpoint)
		h.Timeout = cfg.Timeout
		h.SlaveId = cfg.UnitID
		return newClient(h, mb.NewClient(h)), nil

	case "rtu":
		if cfg.Device == "" {
			return nil, errors.New("modbus client: serial device required for rtu")
		}
		h := mb.NewRTUClientHandler(cfg.Device)
		if cfg.BaudRate > 0 {
			h.BaudRate = cfg.BaudRate
		}
		h.DataBits = 8
		h.Parity = "N"
		h.StopBits = 1
		h.Timeout = cfg.Timeout
		h.SlaveId = cfg.UnitID
		return newClient(h, mb.NewClient(h)), nil

	default:
		return nil, fmt.Errorf("modbus client: transport %q not supported", cfg.Transport)
	}
}

func newClient(c conn, regs registerReader) *Client {
	return &Client{conn: c, regs: regs}
}

// ---- lifecycle ----

func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.Connect(); err != nil {
		c.connected = false
		return err
	}
	c.connected = true
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	return c.conn.Close()
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ---- poller.Client interface ----

// ReadAll reads the SunSpec common block, the inverter model and the
// power control block.
func (c *Client) ReadAll() (schema.Values, error) {
	regs, err := c.read(commonBase, inverterQty)
	if err != nil {
		return nil, err
	}
	if regs[0] != sunSpecID0 || regs[1] != sunSpecID1 {
		return nil, ErrNotSunSpec
	}

	values := make(schema.Values)
	if err := decode(regs[inverterBase:], inverterFields, values); err != nil {
		return nil, err
	}

	pc, err := c.read(powerControlBase, powerControlQty)
	if err != nil {
		return nil, fmt.Errorf("modbus client: power control: %w", err)
	}
	if err := decode(pc, powerControlFields, values); err != nil {
		return nil, err
	}
	return values, nil
}

// Meters probes the three meter slots and returns the populated ones
// as Meter1..Meter3.
func (c *Client) Meters() (map[string]schema.Reader, error) {
	out := make(map[string]schema.Reader)
	for i, base := range meterBases {
		start := base + meterModelOffset
		ok, err := c.populated(start)
		if err != nil {
			return nil, fmt.Errorf("modbus client: meter %d: %w", i+1, err)
		}
		if ok {
			out[fmt.Sprintf("Meter%d", i+1)] = &block{c: c, start: start, qty: meterQty, fields: meterFields}
		}
	}
	return out, nil
}

// Batteries probes the two battery slots and returns the populated ones
// as Battery1..Battery2.
func (c *Client) Batteries() (map[string]schema.Reader, error) {
	out := make(map[string]schema.Reader)
	for i, base := range batteryBases {
		start := base + batteryDataOffset
		ok, err := c.populated(start)
		if err != nil {
			return nil, fmt.Errorf("modbus client: battery %d: %w", i+1, err)
		}
		if ok {
			out[fmt.Sprintf("Battery%d", i+1)] = &block{
				c: c, start: start, qty: batteryQty, fields: batteryFields,
				did: schema.DIDBattery,
			}
		}
	}
	return out, nil
}

// ---- internal helpers ----

// populated reads the first register of a slot. A Modbus exception
// means the slot does not exist on this installation.
func (c *Client) populated(addr uint16) (bool, error) {
	regs, err := c.read(addr, 1)
	var mbErr *mb.ModbusError
	if errors.As(err, &mbErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !absent(regs[0]), nil
}

func (c *Client) read(addr, qty uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, ErrNotConnected
	}
	b, err := c.regs.ReadHoldingRegisters(addr, qty)
	if err != nil {
		return nil, err
	}
	if len(b) != int(qty)*2 {
		return nil, fmt.Errorf("modbus client: short read at %d: got %d bytes, want %d", addr, len(b), int(qty)*2)
	}
	return words(b), nil
}

// block is a meter or battery register block.
type block struct {
	c      *Client
	start  uint16
	qty    uint16
	fields []field
	did    int // tag when the device carries no DID register
}

func (b *block) ReadAll() (schema.Values, error) {
	regs, err := b.c.read(b.start, b.qty)
	if err != nil {
		return nil, err
	}
	values := make(schema.Values)
	if err := decode(regs, b.fields, values); err != nil {
		return nil, err
	}
	if b.did != 0 {
		values[schema.DeviceTypeKey] = float64(b.did)
	}
	return values, nil
}
