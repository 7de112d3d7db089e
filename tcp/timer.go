package tcp

// retransmitTimer is the TCPSender's single RTO timer, represented as
// explicit state transitions rather than a scheduled callback; tick is
// its sole driver (see spec.md §9 "Single timer in TCPSender").
type retransmitTimer struct {
	running   bool
	elapsedMs uint64
}

// start marks the timer running without resetting elapsed time.
func (t *retransmitTimer) start() {
	t.running = true
}

// reset marks the timer running and zeroes elapsed time.
func (t *retransmitTimer) reset() {
	t.running = true
	t.elapsedMs = 0
}

// stop marks the timer not running and zeroes elapsed time.
func (t *retransmitTimer) stop() {
	t.running = false
	t.elapsedMs = 0
}

// tick advances elapsed time by dt milliseconds if the timer is running.
func (t *retransmitTimer) tick(dt uint64) {
	if t.running {
		t.elapsedMs += dt
	}
}

// expired reports whether the timer is running and has reached
// threshold milliseconds of elapsed time.
func (t *retransmitTimer) expired(thresholdMs uint64) bool {
	return t.running && t.elapsedMs >= thresholdMs
}
