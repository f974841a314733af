package archon

import (
	"log/slog"
	"sort"
)

// SystemGroup fixes the three phases a tick runs systems through, in
// this order, regardless of registration order across groups.
type SystemGroup int

const (
	GroupInitialization SystemGroup = iota
	GroupSimulation
	GroupPresentation
)

func (g SystemGroup) String() string {
	switch g {
	case GroupInitialization:
		return "initialization"
	case GroupSimulation:
		return "simulation"
	case GroupPresentation:
		return "presentation"
	default:
		return "unknown"
	}
}

// Frame is the per-tick context handed to every system: the elapsed
// time, the world being advanced, and a CommandBuffer the driver
// flushes against the world right after the system returns.
type Frame struct {
	DeltaTime float64
	World     *World
	Commands  *CommandBuffer
}

// System is one unit of per-tick behavior.
type System interface {
	Execute(frame *Frame)
}

// SystemInfo is a read-only snapshot of a registered system, the shape
// list_systems() in the inspection interface reports.
type SystemInfo struct {
	Name            string
	Enabled         bool
	Group           SystemGroup
	OrderWithinGroup int
	Owner           string
}

type systemEntry struct {
	name     string
	system   System
	group    SystemGroup
	priority int
	order    int
	enabled  bool
	owner    string
}

// Driver ticks a set of grouped, ordered systems against a World,
// grounded on plus3/ooftn's Scheduler but fixed to the three spec
// groups rather than a flat registration list, and augmented with
// pause/step for deterministic offline advancement.
type Driver struct {
	world     *World
	systems   []*systemEntry
	nextOrder int
	paused    bool
	tick      uint64
	lastDelta float64
	logger    *slog.Logger
}

// DriverOption configures a Driver at construction.
type DriverOption func(*Driver)

// WithLogger overrides the driver's logger. A nil logger is treated as
// slog.Default().
func WithLogger(logger *slog.Logger) DriverOption {
	return func(d *Driver) { d.logger = logger }
}

// NewDriver creates a Driver ticking world.
func NewDriver(world *World, opts ...DriverOption) *Driver {
	d := &Driver{world: world, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Register adds a system to the driver under group/priority, enabled
// by default. Ties within a group break by registration order.
func (d *Driver) Register(name string, group SystemGroup, priority int, owner string, system System) {
	d.systems = append(d.systems, &systemEntry{
		name:     name,
		system:   system,
		group:    group,
		priority: priority,
		order:    d.nextOrder,
		enabled:  true,
		owner:    owner,
	})
	d.nextOrder++
}

func (d *Driver) find(name string) *systemEntry {
	for _, e := range d.systems {
		if e.name == name {
			return e
		}
	}
	return nil
}

// EnableSystem enables a registered system by name, reporting whether
// one was found.
func (d *Driver) EnableSystem(name string) bool {
	e := d.find(name)
	if e == nil {
		return false
	}
	e.enabled = true
	return true
}

// DisableSystem disables a registered system by name, reporting
// whether one was found.
func (d *Driver) DisableSystem(name string) bool {
	e := d.find(name)
	if e == nil {
		return false
	}
	e.enabled = false
	return true
}

// ListSystems reports every registered system in tick execution order.
func (d *Driver) ListSystems() []SystemInfo {
	ordered := d.orderedSystems()
	out := make([]SystemInfo, len(ordered))
	pos := 0
	for i, e := range ordered {
		if i > 0 && ordered[i-1].group != e.group {
			pos = 0
		}
		out[i] = SystemInfo{
			Name:             e.name,
			Enabled:          e.enabled,
			Group:            e.group,
			OrderWithinGroup: pos,
			Owner:            e.owner,
		}
		pos++
	}
	return out
}

func (d *Driver) orderedSystems() []*systemEntry {
	ordered := make([]*systemEntry, len(d.systems))
	copy(ordered, d.systems)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].group != ordered[j].group {
			return ordered[i].group < ordered[j].group
		}
		if ordered[i].priority != ordered[j].priority {
			return ordered[i].priority < ordered[j].priority
		}
		return ordered[i].order < ordered[j].order
	})
	return ordered
}

// IsPaused reports whether the driver is currently paused.
func (d *Driver) IsPaused() bool { return d.paused }

// Pause stops Tick from advancing the world; Step still works.
func (d *Driver) Pause() { d.paused = true }

// Resume lets Tick advance the world again.
func (d *Driver) Resume() { d.paused = false }

// Tick advances the world by one frame, running every enabled system
// in group/priority/order sequence and flushing whatever each system
// queued via its Frame's CommandBuffer. A no-op while paused.
func (d *Driver) Tick(dt float64) error {
	if dt < 0 {
		return InvalidArgumentError{Arg: "dt", Reason: "must be non-negative"}
	}
	if d.paused {
		d.logger.Debug("tick skipped while paused", slog.Uint64("tick", d.tick))
		return nil
	}
	return d.runFrame(dt)
}

// Step advances the world by frames ticks of dt each, usable only
// while paused — the deterministic, caller-driven counterpart to Tick.
func (d *Driver) Step(dt float64, frames int) error {
	if !d.paused {
		return InvalidArgumentError{Arg: "frames", Reason: "Step is only valid while paused"}
	}
	if dt < 0 {
		return InvalidArgumentError{Arg: "dt", Reason: "must be non-negative"}
	}
	if frames < 1 || frames > 10000 {
		return InvalidArgumentError{Arg: "frames", Reason: "must be between 1 and 10000"}
	}
	for i := 0; i < frames; i++ {
		if err := d.runFrame(dt); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) runFrame(dt float64) error {
	d.lastDelta = dt
	for _, e := range d.orderedSystems() {
		if !e.enabled {
			continue
		}
		frame := &Frame{DeltaTime: dt, World: d.world, Commands: NewCommandBuffer()}
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("system panicked", slog.String("system", e.name), slog.Any("recovered", r))
					if Config.HandlerFailure() == HandlerFailurePropagate {
						panic(r)
					}
				}
			}()
			e.system.Execute(frame)
		}()
		if err := frame.Commands.Flush(d.world); err != nil {
			return err
		}
	}
	d.tick++
	return nil
}

// TickCount returns the number of frames successfully advanced so far.
func (d *Driver) TickCount() uint64 { return d.tick }

// LastDelta returns the delta_seconds passed to the most recent Tick
// or Step iteration.
func (d *Driver) LastDelta() float64 { return d.lastDelta }
