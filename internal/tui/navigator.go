package tui

// Navigator tracks the carousel position over question steps 0..N-1 and the
// summary step N, plus the transition lock that keeps moves from overlapping.
type Navigator struct {
	steps   int
	current int
	locked  bool
	lockSeq int
}

// NewNavigator starts at the first question of a poll with steps questions.
func NewNavigator(steps int) Navigator {
	if steps < 0 {
		steps = 0
	}
	return Navigator{steps: steps}
}

// Current is the active index in [0, Steps()].
func (n Navigator) Current() int { return n.current }

// Steps is the number of question steps; it is also the summary index.
func (n Navigator) Steps() int { return n.steps }

// OnSummary reports whether the summary step is active.
func (n Navigator) OnSummary() bool { return n.current == n.steps }

// Locked reports whether a transition is still animating.
func (n Navigator) Locked() bool { return n.locked }

// LockSeq identifies the most recent lock so a late unlock can be told apart.
func (n Navigator) LockSeq() int { return n.lockSeq }

// Advance moves one step forward and takes the lock. It returns false and
// changes nothing when locked or already on the summary.
func (n *Navigator) Advance() bool {
	if n.locked || n.current >= n.steps {
		return false
	}
	n.current++
	n.lock()
	return true
}

// Retreat moves one step back and takes the lock. It returns false and
// changes nothing when locked or already on the first step.
func (n *Navigator) Retreat() bool {
	if n.locked || n.current <= 0 {
		return false
	}
	n.current--
	n.lock()
	return true
}

// Unlock releases the lock taken with seq. Unlocks for older locks are ignored.
func (n *Navigator) Unlock(seq int) bool {
	if !n.locked || seq != n.lockSeq {
		return false
	}
	n.locked = false
	return true
}

// Restart jumps back to the first step and drops any pending lock.
func (n *Navigator) Restart() {
	n.current = 0
	n.locked = false
	n.lockSeq++
}

func (n *Navigator) lock() {
	n.locked = true
	n.lockSeq++
}
