package econet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensor_UniqueIDAndName(t *testing.T) {
	s := NewControllerSensor(BuildDescriptor("tempFlueGas", nil), testEntry(NewDataCoordinator()))

	assert.Equal(t, "abc123-tempFlueGas", s.UniqueID())
	assert.Equal(t, "temp_flue_gas", s.Name())
	assert.Zero(t, s.SubIndex())
}

func TestSensor_DeviceInfo(t *testing.T) {
	entry := testEntry(NewDataCoordinator())

	t.Run("controller", func(t *testing.T) {
		d := NewControllerSensor(BuildDescriptor("tempCO", nil), entry).DeviceInfo()
		assert.Equal(t, []string{"abc123"}, d.Identifiers)
		assert.Equal(t, ControllerDeviceName, d.Name)
		assert.Equal(t, Manufacturer, d.Manufacturer)
		assert.Equal(t, "ecoMAX810P-L", d.ModelID)
		assert.Equal(t, "http://192.168.1.50", d.ConfigurationURL)
		assert.Equal(t, "3.2.3879", d.SoftwareVersion)
		assert.Equal(t, "1.0", d.HardwareVersion)
		assert.Empty(t, d.ViaDevice)
	})

	t.Run("mixer", func(t *testing.T) {
		d := NewMixerSensor(BuildDescriptor("mixerTemp2", nil), entry, 2).DeviceInfo()
		assert.Equal(t, []string{"abc123-mixer-2"}, d.Identifiers)
		assert.Equal(t, "Mixer 2", d.Name)
		assert.Equal(t, "abc123", d.ViaDevice)
	})

	t.Run("lambda", func(t *testing.T) {
		d := NewLambdaSensor(BuildDescriptor("lambdaLevel", nil), entry).DeviceInfo()
		assert.Equal(t, []string{"abc123lambda"}, d.Identifiers)
		assert.Equal(t, LambdaDeviceName, d.Name)
		assert.Equal(t, "abc123", d.ViaDevice)
	})
}

func TestSensor_SyncStateAppliesTransform(t *testing.T) {
	s := NewControllerSensor(BuildDescriptor("mode", nil), testEntry(NewDataCoordinator()))

	_, ok := s.Value()
	assert.False(t, ok)
	assert.True(t, s.UpdatedAt().IsZero())

	s.SyncState(3.0)

	v, ok := s.Value()
	require.True(t, ok)
	assert.Equal(t, "work", v)
	assert.False(t, s.UpdatedAt().IsZero())
}

func TestSensor_AttachToPrefersSysThenRegThenEdits(t *testing.T) {
	tests := []struct {
		name  string
		reg   Params
		sys   Params
		edits Params
		want  any
	}{
		{"sys first", Params{"tempCOSet": 50.0}, Params{"tempCOSet": 60.0}, Params{"tempCOSet": 70.0}, 60.0},
		{"reg when sys null", Params{"tempCOSet": 50.0}, Params{"tempCOSet": nil}, nil, 50.0},
		{"edits last", Params{}, Params{}, Params{"tempCOSet": 70.0}, 70.0},
		{"zero kept on attach", Params{"tempCOSet": 0.0}, Params{}, Params{"tempCOSet": 70.0}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCoordinator(tt.reg, tt.sys, tt.edits)
			s := NewControllerSensor(BuildDescriptor("tempCOSet", nil), testEntry(c))
			w := &recordingWriter{}

			s.AttachTo(w)

			v, ok := s.Value()
			require.True(t, ok)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, 1, w.count())
		})
	}
}

func TestSensor_AttachToWarnsWhenKeyMissing(t *testing.T) {
	c := newTestCoordinator(Params{"tempCO": 1.0}, Params{}, nil)
	logger := &recordingLogger{}
	entry := testEntry(c)
	entry.Logger = logger

	s := NewControllerSensor(BuildDescriptor("tempFeeder", nil), entry)
	w := &recordingWriter{}
	s.AttachTo(w)

	_, ok := s.Value()
	assert.False(t, ok)
	assert.Zero(t, w.count())
	assert.Equal(t, 1, logger.count("warn"))
	assert.Equal(t, 1, c.ListenerCount())
}

func TestSensor_CoordinatorUpdateUsesTruthyChain(t *testing.T) {
	c := newTestCoordinator(Params{"tempCO": 50.0}, Params{}, nil)
	s := NewControllerSensor(BuildDescriptor("tempCO", nil), testEntry(c))
	w := &recordingWriter{}
	s.AttachTo(w)

	c.Update(&Snapshot{RegParams: Params{"tempCO": 52.0}, SysParams: Params{"tempCO": 0.0}})
	v, _ := s.Value()
	assert.Equal(t, 52.0, v)

	c.Update(&Snapshot{RegParams: Params{}, SysParams: Params{}, ParamsEdits: Params{"tempCO": 53.0}})
	v, _ = s.Value()
	assert.Equal(t, 53.0, v)

	// Unresolvable: previous value kept, no write.
	before := w.count()
	c.Update(&Snapshot{RegParams: Params{}, SysParams: Params{}})
	v, _ = s.Value()
	assert.Equal(t, 53.0, v)
	assert.Equal(t, before, w.count())
}

func TestSensor_ReattachReplacesListener(t *testing.T) {
	c := newTestCoordinator(Params{"tempCO": 50.0}, Params{}, nil)
	s := NewControllerSensor(BuildDescriptor("tempCO", nil), testEntry(c))

	first, second := &recordingWriter{}, &recordingWriter{}
	s.AttachTo(first)
	s.AttachTo(second)
	assert.Equal(t, 1, c.ListenerCount())

	c.Update(&Snapshot{RegParams: Params{"tempCO": 51.0}})
	assert.Equal(t, 1, first.count())
	assert.Equal(t, 2, second.count())

	s.Detach()
	assert.Zero(t, c.ListenerCount())
	c.Update(&Snapshot{RegParams: Params{"tempCO": 52.0}})
	assert.Equal(t, 2, second.count())
}
