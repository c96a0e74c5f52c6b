package retargeting

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/haptic_retargeting/internal/actuator"
	"github.com/relabs-tech/haptic_retargeting/internal/config"
	"github.com/relabs-tech/haptic_retargeting/internal/groups"
)

const prefix = "iFeelSuit::haptic::Node#"

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type fakeReader struct {
	mu     sync.Mutex
	values []float64
	fail   bool
}

func (f *fakeReader) set(values ...float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = values
	f.fail = false
}

func (f *fakeReader) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakeReader) Values(buf []float64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail || f.values == nil {
		return false
	}
	copy(buf, f.values)
	return true
}

func (f *fakeReader) Velocities(buf []float64) bool { return f.Values(buf) }

func f64(v float64) *float64 { return &v }

func spec(name string, axes ...string) config.GroupSpec {
	return config.GroupSpec{
		Name:         name,
		JointAxes:    axes,
		Actuators:    []string{"1", "2"},
		MinThreshold: f64(1),
		MaxThreshold: f64(5),
		MapFunction:  groups.MapLinear,
		TimePattern:  groups.PatternContinuous,
	}
}

func testOptions() Options {
	return Options{
		Period:             time.Millisecond,
		AcquisitionTimeout: 100 * time.Millisecond,
		MaxIntensity:       127,
		ActuatorPrefix:     prefix,
		MaxVelocity:        1,
	}
}

type harness struct {
	c        *Controller
	joints   *fakeReader
	velocity *fakeReader
	sink     *actuator.Recorder
}

func newHarness(t *testing.T, opts Options, specs ...config.GroupSpec) *harness {
	t.Helper()
	if len(specs) == 0 {
		specs = []config.GroupSpec{spec("knee", "r_knee")}
	}
	reg, err := groups.NewRegistry(&config.GroupsFile{ActuatorGroups: specs}, groups.ScalarWidth)
	require.NoError(t, err)

	h := &harness{joints: &fakeReader{}, velocity: &fakeReader{}, sink: actuator.NewRecorder(nil)}
	h.c, err = New(opts, Deps{
		Groups:     reg,
		Joints:     h.joints,
		Velocities: h.velocity,
		Sink:       h.sink,
		Contacts:   h.sink,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) run(t *testing.T) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = h.c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.c.Done()
	})
	return cancel
}

func values(cmds []actuator.Command) []float64 {
	out := make([]float64, len(cmds))
	for i, c := range cmds {
		out[i] = c.Value
	}
	return out
}

func TestCycleHalfIntensity(t *testing.T) {
	h := newHarness(t, testOptions())
	h.joints.set(3)

	require.NoError(t, h.c.cycle(t0))

	cmds := h.sink.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, prefix+"1", cmds[0].Name)
	assert.Equal(t, prefix+"2", cmds[1].Name)
	for _, c := range cmds {
		assert.Equal(t, 63.0, c.Value)
		assert.Equal(t, actuator.TypeHaptic, c.Type)
		assert.Equal(t, actuator.StatusOK, c.Status)
	}
}

func TestStopCommandIsSentOnce(t *testing.T) {
	h := newHarness(t, testOptions())

	h.joints.set(0.5)
	require.NoError(t, h.c.cycle(t0))
	assert.Empty(t, h.sink.Commands(), "nothing below min intensity before any emission")

	h.joints.set(5)
	require.NoError(t, h.c.cycle(t0.Add(time.Millisecond)))
	assert.Equal(t, []float64{127, 127}, values(h.sink.Commands()))

	h.sink.Reset()
	h.joints.set(0.5)
	require.NoError(t, h.c.cycle(t0.Add(2*time.Millisecond)))
	assert.Equal(t, []float64{0, 0}, values(h.sink.Commands()))

	h.sink.Reset()
	require.NoError(t, h.c.cycle(t0.Add(3*time.Millisecond)))
	assert.Empty(t, h.sink.Commands())
}

func TestMinIntensityThreshold(t *testing.T) {
	opts := testOptions()
	opts.MinIntensity = 0.3
	h := newHarness(t, opts)

	h.joints.set(2) // 0.25
	require.NoError(t, h.c.cycle(t0))
	assert.Empty(t, h.sink.Commands())

	h.joints.set(3) // 0.5
	require.NoError(t, h.c.cycle(t0.Add(time.Millisecond)))
	assert.Equal(t, []float64{63, 63}, values(h.sink.Commands()))
}

func TestAcquisitionFailureSkipsCycleThenTimesOut(t *testing.T) {
	h := newHarness(t, testOptions())

	h.joints.set(3)
	require.NoError(t, h.c.cycle(t0))
	h.sink.Reset()

	h.joints.setFail(true)
	require.NoError(t, h.c.cycle(t0.Add(50*time.Millisecond)))
	assert.Empty(t, h.sink.Commands(), "failed cycles emit nothing")
	assert.Empty(t, h.sink.Contacts())

	err := h.c.cycle(t0.Add(150 * time.Millisecond))
	assert.ErrorIs(t, err, ErrAcquisitionTimeout)
}

func TestTimeoutCountsFromFirstCycle(t *testing.T) {
	h := newHarness(t, testOptions())
	h.joints.setFail(true)

	require.NoError(t, h.c.cycle(t0))
	require.NoError(t, h.c.cycle(t0.Add(100*time.Millisecond)))
	assert.ErrorIs(t, h.c.cycle(t0.Add(101*time.Millisecond)), ErrAcquisitionTimeout)
}

func TestVelocityGate(t *testing.T) {
	opts := testOptions()
	opts.UseVelocity = true
	h := newHarness(t, opts)
	h.joints.set(5)

	h.velocity.set(2)
	require.NoError(t, h.c.cycle(t0))
	assert.Empty(t, h.sink.Commands(), "gated group stays silent")

	h.velocity.set(-0.5)
	require.NoError(t, h.c.cycle(t0.Add(time.Millisecond)))
	assert.Equal(t, []float64{127, 127}, values(h.sink.Commands()))

	h.sink.Reset()
	h.velocity.set(-3)
	require.NoError(t, h.c.cycle(t0.Add(2*time.Millisecond)))
	assert.Equal(t, []float64{0, 0}, values(h.sink.Commands()), "gating stops the actuators")

	h.sink.Reset()
	h.velocity.set(1)
	require.NoError(t, h.c.cycle(t0.Add(3*time.Millisecond)))
	assert.Equal(t, []float64{127, 127}, values(h.sink.Commands()), "|v| == max is not gated")
}

func TestVelocityReadFailureKeepsLastVelocities(t *testing.T) {
	opts := testOptions()
	opts.UseVelocity = true
	h := newHarness(t, opts)
	h.joints.set(5)

	h.velocity.set(2)
	require.NoError(t, h.c.cycle(t0))
	h.velocity.setFail(true)
	require.NoError(t, h.c.cycle(t0.Add(time.Millisecond)))
	assert.Empty(t, h.sink.Commands())
}

func TestFilterSmoothsStep(t *testing.T) {
	opts := testOptions()
	opts.Period = 20 * time.Millisecond
	opts.FilterCutoffHz = 5
	h := newHarness(t, opts)
	h.joints.set(3)

	require.NoError(t, h.c.cycle(t0))
	assert.Less(t, h.c.values[0], 0.6)
	assert.Greater(t, h.c.values[0], 0.0)

	for i := 1; i < 300; i++ {
		require.NoError(t, h.c.cycle(t0.Add(time.Duration(i)*opts.Period)))
	}
	assert.InDelta(t, 3.0, h.c.values[0], 1e-3)
}

func TestNonFiniteSampleIsDropped(t *testing.T) {
	opts := testOptions()
	opts.FilterCutoffHz = 5
	h := newHarness(t, opts)

	h.joints.set(3)
	require.NoError(t, h.c.cycle(t0))
	h.sink.Reset()

	for i, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		h.joints.set(v)
		require.NoError(t, h.c.cycle(t0.Add(time.Duration(i+1)*time.Millisecond)))
	}
	assert.Empty(t, h.sink.Commands(), "non-finite samples skip the cycle")

	h.joints.set(3)
	for i := 4; i < 2000; i++ {
		require.NoError(t, h.c.cycle(t0.Add(time.Duration(i)*time.Millisecond)))
	}
	assert.InDelta(t, 3.0, h.c.values[0], 1e-3, "filter state is not poisoned")
	cmds := h.sink.Commands()
	require.NotEmpty(t, cmds)
	for _, c := range cmds {
		assert.False(t, math.IsNaN(c.Value))
	}
	assert.Equal(t, 63.0, cmds[len(cmds)-1].Value)
}

func TestNonFiniteSamplesTimeOut(t *testing.T) {
	h := newHarness(t, testOptions())
	h.joints.set(3)
	require.NoError(t, h.c.cycle(t0))

	h.joints.set(math.NaN())
	require.NoError(t, h.c.cycle(t0.Add(50*time.Millisecond)))
	assert.ErrorIs(t, h.c.cycle(t0.Add(150*time.Millisecond)), ErrAcquisitionTimeout)
}

func TestContactsArePublished(t *testing.T) {
	h := newHarness(t, testOptions(), spec("left", "l_ankle"), spec("right", "r_ankle"))
	h.joints.set(3, 0.5)

	require.NoError(t, h.c.cycle(t0))

	contacts := h.sink.Contacts()
	require.Len(t, contacts, 1)
	assert.True(t, contacts[0].Time.Equal(t0))
	assert.Equal(t, []actuator.Contact{
		{Group: "left", InContact: true, Value: 3},
		{Group: "right", InContact: false, Value: 0.5},
	}, contacts[0].Contacts)
}

func TestNewValidation(t *testing.T) {
	reg, err := groups.NewRegistry(&config.GroupsFile{ActuatorGroups: []config.GroupSpec{spec("g", "a")}}, groups.ScalarWidth)
	require.NoError(t, err)
	joints := &fakeReader{}
	sink := actuator.NewRecorder(nil)

	_, err = New(testOptions(), Deps{Groups: reg, Joints: joints})
	assert.Error(t, err, "missing sink")

	opts := testOptions()
	opts.Period = 0
	_, err = New(opts, Deps{Groups: reg, Joints: joints, Sink: sink})
	assert.Error(t, err)

	opts = testOptions()
	opts.UseVelocity = true
	_, err = New(opts, Deps{Groups: reg, Joints: joints, Sink: sink})
	assert.Error(t, err, "velocity gating needs a reader")

	opts = testOptions()
	opts.Period = 20 * time.Millisecond
	opts.FilterCutoffHz = 30
	_, err = New(opts, Deps{Groups: reg, Joints: joints, Sink: sink})
	assert.Error(t, err, "cutoff above Nyquist")
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.FilterEnabled = false
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, 20*time.Millisecond, opts.Period)
	assert.Equal(t, 5*time.Second, opts.AcquisitionTimeout)
	assert.Equal(t, 127, opts.MaxIntensity)
	assert.Equal(t, prefix, opts.ActuatorPrefix)
	assert.Zero(t, opts.FilterCutoffHz)

	cfg.FilterEnabled = true
	assert.Equal(t, cfg.FilterCutoffHz, OptionsFromConfig(cfg).FilterCutoffHz)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "State(9)", State(9).String())
}
