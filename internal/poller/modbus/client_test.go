// internal/poller/modbus/client_test.go
package modbus

import (
	"encoding/binary"
	"errors"
	"testing"

	mb "github.com/goburrow/modbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/solaredge-bridge/internal/schema"
)

type fakeConn struct {
	connectErr error
	closed     int
}

func (f *fakeConn) Connect() error { return f.connectErr }
func (f *fakeConn) Close() error   { f.closed++; return nil }

// fakeDevice is a sparse holding register space.
type fakeDevice struct {
	regs       map[uint16]uint16
	exceptions map[uint16]bool
	short      bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{regs: map[uint16]uint16{}, exceptions: map[uint16]bool{}}
}

func (d *fakeDevice) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	if d.exceptions[address] {
		return nil, &mb.ModbusError{FunctionCode: 3, ExceptionCode: mb.ExceptionCodeIllegalDataAddress}
	}
	n := int(quantity)
	if d.short {
		n--
	}
	out := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		binary.BigEndian.PutUint16(out[2*i:], d.regs[address+uint16(i)])
	}
	return out, nil
}

func (d *fakeDevice) f32sw(addr uint16, bits uint32) {
	d.regs[addr] = uint16(bits)
	d.regs[addr+1] = uint16(bits >> 16)
}

func sunSpecInverter() *fakeDevice {
	d := newFakeDevice()
	d.regs[40000] = sunSpecID0
	d.regs[40001] = sunSpecID1

	m := uint16(commonBase + inverterBase)
	d.regs[m] = 101
	d.regs[m+2] = 150
	d.regs[m+6] = 0xFFFF // current_scale -1
	d.regs[m+14] = 2300
	d.regs[m+24] = 0x0001
	d.regs[m+25] = 0x0002
	d.regs[m+34] = 0xFFEC // -20
	d.regs[m+38] = 4

	d.regs[powerControlBase] = 1
	d.regs[powerControlBase+1] = 100
	d.f32sw(powerControlBase+2, 0x3F800000) // 1.0
	return d
}

func connected(t *testing.T, d *fakeDevice) *Client {
	t.Helper()
	c := newClient(&fakeConn{}, d)
	require.NoError(t, c.Connect())
	return c
}

func TestNew_Transports(t *testing.T) {
	_, err := New(Config{Endpoint: "127.0.0.1:1502"})
	assert.NoError(t, err)

	_, err = New(Config{Transport: "rtu", Device: "/dev/ttyUSB0", BaudRate: 9600})
	assert.NoError(t, err)

	_, err = New(Config{Transport: "tcp"})
	assert.Error(t, err)

	_, err = New(Config{Transport: "rtu"})
	assert.Error(t, err)

	_, err = New(Config{Transport: "udp", Endpoint: "x:1"})
	assert.Error(t, err)
}

func TestClient_ReadAllInverter(t *testing.T) {
	c := connected(t, sunSpecInverter())

	v, err := c.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, 101.0, v[schema.DeviceTypeKey])
	assert.Equal(t, 150.0, v["current"])
	assert.Equal(t, -1.0, v["current_scale"])
	assert.Equal(t, 2300.0, v["power_ac"])
	assert.Equal(t, 65538.0, v["energy_total"])
	assert.Equal(t, -20.0, v["temperature"])
	assert.Equal(t, 4.0, v["status"])
	assert.Equal(t, 1.0, v["rrcr_state"])
	assert.Equal(t, 100.0, v["active_power_limit"])
	assert.Equal(t, 1.0, v["cosphi"])
}

func TestClient_ReadAllRequiresSunSpecMarker(t *testing.T) {
	d := sunSpecInverter()
	d.regs[40000] = 0

	_, err := connected(t, d).ReadAll()
	assert.ErrorIs(t, err, ErrNotSunSpec)
}

func TestClient_NotConnected(t *testing.T) {
	c := newClient(&fakeConn{}, sunSpecInverter())

	_, err := c.ReadAll()
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, c.Connected())
}

func TestClient_ConnectFailureLeavesDisconnected(t *testing.T) {
	c := newClient(&fakeConn{connectErr: errors.New("refused")}, sunSpecInverter())

	assert.Error(t, c.Connect())
	assert.False(t, c.Connected())
}

func TestClient_CloseDisconnects(t *testing.T) {
	conn := &fakeConn{}
	c := newClient(conn, sunSpecInverter())
	require.NoError(t, c.Connect())
	require.True(t, c.Connected())

	require.NoError(t, c.Close())
	assert.False(t, c.Connected())
	assert.Equal(t, 1, conn.closed)
}

func TestClient_ShortRead(t *testing.T) {
	d := sunSpecInverter()
	d.short = true

	_, err := connected(t, d).ReadAll()
	assert.Error(t, err)
}

func TestClient_Meters(t *testing.T) {
	d := sunSpecInverter()
	m1 := meterBases[0] + meterModelOffset
	d.regs[m1] = 203
	d.regs[m1+2] = 0xFFF6 // -10
	d.regs[m1+38] = 0
	d.regs[m1+39] = 5000
	d.regs[m1+54] = 0
	d.regs[meterBases[1]+meterModelOffset] = 0xFFFF
	d.exceptions[meterBases[2]+meterModelOffset] = true

	c := connected(t, d)
	meters, err := c.Meters()
	require.NoError(t, err)
	require.Len(t, meters, 1)
	require.Contains(t, meters, "Meter1")

	v, err := meters["Meter1"].ReadAll()
	require.NoError(t, err)
	assert.Equal(t, 203.0, v[schema.DeviceTypeKey])
	assert.Equal(t, -10.0, v["current"])
	assert.Equal(t, 5000.0, v["export_energy_active"])
	assert.Contains(t, v, "l3_export_energy_reactive_q4")
	assert.Contains(t, v, "energy_reactive_scale")
}

func TestClient_Batteries(t *testing.T) {
	d := sunSpecInverter()
	b1 := batteryBases[0] + batteryDataOffset
	d.regs[b1] = 1
	d.f32sw(b1+0x44, 0x42480000) // 50.0
	d.regs[b1+0x36] = 0x86A0
	d.regs[b1+0x37] = 0x0001
	d.regs[b1+0x46] = 3
	d.regs[batteryBases[1]+batteryDataOffset] = 0

	c := connected(t, d)
	batteries, err := c.Batteries()
	require.NoError(t, err)
	require.Len(t, batteries, 1)

	v, err := batteries["Battery1"].ReadAll()
	require.NoError(t, err)
	assert.Equal(t, float64(schema.DIDBattery), v[schema.DeviceTypeKey])
	assert.Equal(t, 50.0, v["soe"])
	assert.Equal(t, 100000.0, v["lifetime_export_energy_counter"])
	assert.Equal(t, 3.0, v["status"])
}

func TestDecode_OutOfBlock(t *testing.T) {
	err := decode(make([]uint16, 2), []field{{"x", 1, u32}}, schema.Values{})
	assert.Error(t, err)
}

func TestFieldsCoverSchemaSources(t *testing.T) {
	cases := []struct {
		fields  []field
		schemas []*schema.Schema
	}{
		{join(inverterFields, powerControlFields), []*schema.Schema{schema.OtherInverter}},
		{meterFields, []*schema.Schema{schema.OtherMeter}},
		{batteryFields, []*schema.Schema{schema.OtherBattery}},
	}

	for _, tc := range cases {
		names := map[string]bool{}
		for _, f := range tc.fields {
			names[f.name] = true
		}
		for _, s := range tc.schemas {
			for _, row := range s.Rows {
				assert.True(t, names[row.Source], "%s: source %s not decoded", s.Name, row.Source)
				if row.Scale != "" {
					assert.True(t, names[row.Scale], "%s: scale %s not decoded", s.Name, row.Scale)
				}
			}
		}
	}
}
