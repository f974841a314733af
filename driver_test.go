package archon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninthtower/archon/table"
)

type countingSystem struct {
	calls *[]string
	name  string
}

func (s *countingSystem) Execute(frame *Frame) {
	*s.calls = append(*s.calls, s.name)
}

type panickingSystem struct{}

func (panickingSystem) Execute(frame *Frame) { panic("boom") }

func TestDriverRunsSystemsInGroupPriorityOrder(t *testing.T) {
	world := NewWorld(table.NewSchema())
	driver := NewDriver(world)

	var calls []string
	driver.Register("presentation", GroupPresentation, 0, "", &countingSystem{&calls, "presentation"})
	driver.Register("sim-b", GroupSimulation, 10, "", &countingSystem{&calls, "sim-b"})
	driver.Register("sim-a", GroupSimulation, 0, "", &countingSystem{&calls, "sim-a"})
	driver.Register("init", GroupInitialization, 0, "", &countingSystem{&calls, "init"})

	require.NoError(t, driver.Tick(0.016))

	assert.Equal(t, []string{"init", "sim-a", "sim-b", "presentation"}, calls)
	assert.Equal(t, uint64(1), driver.TickCount())
}

func TestDriverSkipsDisabledSystems(t *testing.T) {
	world := NewWorld(table.NewSchema())
	driver := NewDriver(world)

	var calls []string
	driver.Register("sys", GroupSimulation, 0, "", &countingSystem{&calls, "sys"})
	assert.True(t, driver.DisableSystem("sys"))

	require.NoError(t, driver.Tick(0.016))
	assert.Empty(t, calls)

	assert.True(t, driver.EnableSystem("sys"))
	require.NoError(t, driver.Tick(0.016))
	assert.Equal(t, []string{"sys"}, calls)
}

func TestDriverTickNoOpWhilePaused(t *testing.T) {
	world := NewWorld(table.NewSchema())
	driver := NewDriver(world)
	var calls []string
	driver.Register("sys", GroupSimulation, 0, "", &countingSystem{&calls, "sys"})

	driver.Pause()
	assert.True(t, driver.IsPaused())
	require.NoError(t, driver.Tick(0.016))
	assert.Empty(t, calls)
	assert.Equal(t, uint64(0), driver.TickCount())
}

func TestDriverStepOnlyWorksWhilePaused(t *testing.T) {
	world := NewWorld(table.NewSchema())
	driver := NewDriver(world)

	err := driver.Step(0.016, 5)
	assert.Error(t, err)

	driver.Pause()
	require.NoError(t, driver.Step(0.016, 5))
	assert.Equal(t, uint64(5), driver.TickCount())
}

func TestDriverStepRejectsOutOfRangeFrameCounts(t *testing.T) {
	world := NewWorld(table.NewSchema())
	driver := NewDriver(world)
	driver.Pause()

	assert.Error(t, driver.Step(0.016, 0))
	assert.Error(t, driver.Step(0.016, 10001))
}

func TestDriverTickRejectsNegativeDelta(t *testing.T) {
	world := NewWorld(table.NewSchema())
	driver := NewDriver(world)
	assert.Error(t, driver.Tick(-1))
}

func TestDriverPanicPropagationPolicy(t *testing.T) {
	world := NewWorld(table.NewSchema())
	driver := NewDriver(world)
	driver.Register("boom", GroupSimulation, 0, "", panickingSystem{})

	Config.SetHandlerFailure(HandlerFailurePropagate)
	assert.Panics(t, func() { _ = driver.Tick(0.016) })

	Config.SetHandlerFailure(HandlerFailureLogAndContinue)
	assert.NotPanics(t, func() { _ = driver.Tick(0.016) })
	Config.SetHandlerFailure(HandlerFailurePropagate)
}
