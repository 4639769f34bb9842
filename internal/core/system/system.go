package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput    Phase = iota // 0: apply reloaded goals, external commands
	PhaseUpdate                // 1: host logic that requests/releases trees
	PhaseRelease               // 2: deferred releases whose timers expired
	PhaseWarmup                // 3: amortized bulk initialization
	PhaseDecay                 // 4: decay-based pool cleanup
	PhaseReport                // 5: stats, profile snapshots
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Enabler is implemented by systems that can go idle. The runner skips
// Update while Enabled reports false.
type Enabler interface {
	Enabled() bool
}
