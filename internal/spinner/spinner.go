// Package spinner draws a one-line activity indicator under streamed
// progress rows.
package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const interval = 80 * time.Millisecond

// Spinner animates a status message on w. Rows written through Println
// appear above it without being torn by the animation.
type Spinner struct {
	w io.Writer

	mu      sync.Mutex
	message string
	drawn   int
	frame   int

	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// Start displays an animated spinner with the given message on w.
// Call Stop to end the animation and clear the line.
func Start(w io.Writer, message string) *Spinner {
	s := &Spinner{
		w:       w,
		message: message,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Spinner) loop() {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			s.mu.Lock()
			s.clear()
			s.mu.Unlock()
			close(s.stopped)
			return
		case <-ticker.C:
			s.mu.Lock()
			s.draw()
			s.mu.Unlock()
		}
	}
}

// Set replaces the status message.
func (s *Spinner) Set(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Println writes a row above the spinner.
func (s *Spinner) Println(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
	fmt.Fprintln(s.w, line) //nolint:errcheck
}

// Stop ends the animation and clears the line. It is safe to call twice.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.done) })
	<-s.stopped
}

// clear and draw expect s.mu to be held.
func (s *Spinner) clear() {
	if s.drawn == 0 {
		return
	}
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.drawn)) //nolint:errcheck
	s.drawn = 0
}

func (s *Spinner) draw() {
	line := frames[s.frame%len(frames)] + " " + s.message
	s.frame++
	width := runewidth.StringWidth(line)
	pad := ""
	if s.drawn > width {
		pad = strings.Repeat(" ", s.drawn-width)
	}
	fmt.Fprintf(s.w, "\r%s%s", line, pad) //nolint:errcheck
	if width > s.drawn {
		s.drawn = width
	}
}
