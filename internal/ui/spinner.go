package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// SimpleSpinner animates a line for one-shot commands that do not run a
// bubbletea program. It shares the dashboard's spinner frames.
type SimpleSpinner struct {
	kind    spinner.Spinner
	message string
	out     io.Writer
	done    chan struct{}
	stopped chan struct{}
}

func NewSimpleSpinner(message string) *SimpleSpinner {
	return newSpinnerTo(os.Stdout, message)
}

func newSpinnerTo(out io.Writer, message string) *SimpleSpinner {
	return &SimpleSpinner{
		kind:    spinner.Dot,
		message: message,
		out:     out,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (s *SimpleSpinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(s.kind.FPS)
		defer ticker.Stop()

		frames := s.kind.Frames
		for i := 0; ; i = (i + 1) % len(frames) {
			fmt.Fprintf(s.out, "\r  %s %s", PrimaryStyle.Render(frames[i]), WhiteStyle.Render(s.message))
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop waits for the animation to exit and clears the line
func (s *SimpleSpinner) Stop() {
	close(s.done)
	<-s.stopped
	fmt.Fprint(s.out, "\r\033[K")
}

// StopWith clears the spinner and leaves a status line in its place
func (s *SimpleSpinner) StopWith(status, message string) {
	s.Stop()
	fmt.Fprintln(s.out, RenderStatus(status, message))
}

// WithSpinnerResult runs fn behind a spinner and prints the string it
// returns. Errors matching one of soft are shown as warnings instead of
// failures; the error is still returned.
func WithSpinnerResult(message string, fn func() (string, error), soft ...error) (string, error) {
	return spinWith(NewSimpleSpinner(message), fn, soft...)
}

func spinWith(s *SimpleSpinner, fn func() (string, error), soft ...error) (string, error) {
	s.Start()
	result, err := fn()
	if err == nil {
		s.StopWith("success", result)
		return result, nil
	}
	status := "error"
	for _, target := range soft {
		if errors.Is(err, target) {
			status = "warning"
			break
		}
	}
	s.StopWith(status, err.Error())
	return "", err
}
