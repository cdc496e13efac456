package reporter

import "time"

// Spinner overlays the reporter's current line with a rotating glyph.
// It shares the reporter's mutex; its goroutine lives until Reporter.Close.
type Spinner struct {
	r *Reporter

	active bool
	index  int
	line   string

	stop chan struct{}
	done chan struct{}
}

func newSpinner(r *Reporter) *Spinner {
	return &Spinner{
		r:    r,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (s *Spinner) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.r.mu.Lock()
			if s.active {
				s.spinLocked()
			}
			s.r.mu.Unlock()
		}
	}
}

// Update replaces the spinner text and redraws it immediately.
func (s *Spinner) Update(line string) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.line = line
	if s.active {
		s.spinLocked()
	}
}

// Activate starts drawing on every tick.
func (s *Spinner) Activate() {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if s.r.closed {
		return
	}
	s.active = true
}

// Deactivate stops drawing. Deactivating an inactive spinner is a no-op.
func (s *Spinner) Deactivate() {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.active = false
}

// Active reports whether the spinner is drawing.
func (s *Spinner) Active() bool {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	return s.active
}

func (s *Spinner) spinLocked() {
	frames := s.r.frames
	s.r.clearLineLocked()
	s.r.printLocked(frames[s.index] + " " + s.line)
	s.index = (s.index + 1) % len(frames)
}
