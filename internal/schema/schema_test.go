// internal/schema/schema_test.go
package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/solaredge-bridge/internal/calc"
)

func allSchemas() []*Schema {
	return []*Schema{
		SinglePhaseInverter,
		ThreePhaseInverter,
		OtherInverter,
		SinglePhaseMeter,
		WyeThreePhaseMeter,
		OtherMeter,
		Battery,
		OtherBattery,
	}
}

func TestTables_AreConsistent(t *testing.T) {
	for _, s := range allSchemas() {
		require.NoError(t, s.Check(), s.Name)
		assert.NotEmpty(t, s.Rows, s.Name)
	}
}

func TestTables_MaxFieldIDs(t *testing.T) {
	assert.Equal(t, 25, MaxFieldID(SinglePhaseInverter, ThreePhaseInverter, OtherInverter))
	assert.Equal(t, 61, MaxFieldID(SinglePhaseMeter, WyeThreePhaseMeter, OtherMeter))
	assert.Equal(t, 20, MaxFieldID(Battery, OtherBattery))

	assert.Equal(t, 37, WyeThreePhaseMeter.MaxFieldID())
}

func TestTables_FallbacksCoverKnownVariants(t *testing.T) {
	covers := func(other *Schema, known ...*Schema) {
		for _, s := range known {
			for _, r := range s.Rows {
				_, ok := other.Row(r.FieldID)
				assert.True(t, ok, "%s lacks field %d of %s", other.Name, r.FieldID, s.Name)
			}
		}
	}

	covers(OtherInverter, SinglePhaseInverter, ThreePhaseInverter)
	covers(OtherMeter, SinglePhaseMeter, WyeThreePhaseMeter)
	covers(OtherBattery, Battery)
}

func TestTables_RowShapes(t *testing.T) {
	status, ok := ThreePhaseInverter.Row(InverterStatus)
	require.True(t, ok)
	assert.Equal(t, InverterStatusMap, status.Lookup)
	assert.Nil(t, status.Calc)

	energy, ok := SinglePhaseInverter.Row(InverterEnergyTotal)
	require.True(t, ok)
	assert.Equal(t, ComposePrependRow, energy.Compose.Kind)
	assert.Equal(t, InverterPowerAC, energy.Compose.FieldID)
	assert.Equal(t, FormatPair, energy.Format)

	temp, ok := OtherInverter.Row(InverterTemperature)
	require.True(t, ok)
	require.NotNil(t, temp.Calc)
	assert.Equal(t, calc.Maximum, temp.Calc.Kind)

	export, ok := WyeThreePhaseMeter.Row(MeterExportEnergyActive)
	require.True(t, ok)
	assert.Equal(t, ComposeAppendCalc, export.Compose.Kind)
	assert.Equal(t, calc.Delta, export.Compose.Calc.Kind)

	l2, ok := WyeThreePhaseMeter.Row(MeterL2ImportEnergyActive)
	require.True(t, ok)
	assert.Equal(t, FormatCounter, l2.Format)

	q4, ok := OtherMeter.Row(MeterL3ExportEnergyReactiveQ4)
	require.True(t, ok)
	assert.Equal(t, "l3_export_energy_reactive_q4", q4.Source)
	assert.Equal(t, "L3 Exported Energy (Reactive Q4)", q4.Name)

	avail, ok := Battery.Row(BatteryAvailableEnergy)
	require.True(t, ok)
	require.NotNil(t, avail.Calc)
	assert.Equal(t, calc.Above, avail.Calc.Kind)
}

func TestTables_SinglePhaseOmitsOtherPhases(t *testing.T) {
	for _, id := range []int{InverterL2Current, InverterL3Current, InverterL2NVoltage} {
		_, ok := SinglePhaseInverter.Row(id)
		assert.False(t, ok, "field %d", id)
	}
	_, ok := SinglePhaseMeter.Row(MeterL3Power)
	assert.False(t, ok)
}

func TestCheck_RejectsForwardPrepend(t *testing.T) {
	s := &Schema{
		Name: "broken",
		Rows: []Row{
			field(1, "Energy", kwhDevice(0), "energy", "", FormatPair).prepend(2),
			field(2, "Power", usageDevice(), "power", "", FormatFixed2),
		},
	}
	assert.Error(t, s.Check())

	dup := &Schema{
		Name: "dup",
		Rows: []Row{
			field(1, "A", textDevice(), "a", "", FormatValue),
			field(1, "B", textDevice(), "b", "", FormatValue),
		},
	}
	assert.Error(t, dup.Check())
}
