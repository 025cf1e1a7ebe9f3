package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Spinner shows an animated "label..." line until Success or Fail is called.
// On a non-terminal writer it prints nothing until the final line.
type Spinner struct {
	mu       sync.Mutex
	out      io.Writer
	label    string
	animate  bool
	frame    int
	started  time.Time
	last     int
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewSpinner creates a spinner that writes to out.
func NewSpinner(out io.Writer, label string) *Spinner {
	return &Spinner{out: out, label: label, animate: IsTerminal(out)}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopChan != nil {
		return
	}
	s.started = time.Now()
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})

	if !s.animate {
		close(s.doneChan)
		return
	}
	s.renderLocked()
	go s.loop(s.stopChan, s.doneChan)
}

func (s *Spinner) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(spinnerFrames)
			s.renderLocked()
			s.mu.Unlock()
		}
	}
}

// Success stops the spinner and prints a check mark with the elapsed time.
func (s *Spinner) Success() {
	s.finish(SuccessStyle().Render(SymbolSuccess))
}

// Fail stops the spinner and prints a cross with the elapsed time.
func (s *Spinner) Fail() {
	s.finish(ErrorStyle().Render(SymbolFail))
}

func (s *Spinner) finish(symbol string) {
	s.mu.Lock()
	stop, done := s.stopChan, s.doneChan
	s.mu.Unlock()

	if stop == nil {
		return
	}
	select {
	case <-stop:
	default:
		close(stop)
	}
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	elapsed := MutedStyle().Render(formatElapsed(time.Since(s.started)))
	fmt.Fprintf(s.out, "%s %s %s\n", symbol, s.label, elapsed)
}

func (s *Spinner) renderLocked() {
	s.clearLocked()
	style := lipgloss.NewStyle().Foreground(ColorInfo)
	line := fmt.Sprintf("%s %s...", style.Render(spinnerFrames[s.frame]), s.label)
	fmt.Fprint(s.out, line)
	s.last = lipgloss.Width(line)
}

func (s *Spinner) clearLocked() {
	if s.last > 0 {
		fmt.Fprint(s.out, "\r"+strings.Repeat(" ", s.last)+"\r")
		s.last = 0
	}
}

// formatElapsed renders durations like 0.3s or 1m05s.
func formatElapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d / time.Minute)
	sec := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%dm%02ds", m, sec)
}
