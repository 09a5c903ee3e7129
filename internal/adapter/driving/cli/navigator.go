package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Navigator = (*Navigator)(nil)

// Navigator is the terminal rendition of the navigation boundary: leaving
// the protected area prints the notice and the way back in.
type Navigator struct {
	mu     sync.Mutex
	out    io.Writer
	notice string
}

// NewNavigator creates a Navigator that writes to out.
func NewNavigator(out io.Writer) *Navigator {
	return &Navigator{out: out}
}

// GoToLogin leaves the protected area.
func (n *Navigator) GoToLogin(notice string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.notice = notice
	if notice != "" {
		_, _ = fmt.Fprintln(n.out, styleWarning.Render(notice))
	}
	_, _ = fmt.Fprintln(n.out, styleMuted.Render("Run `vaultpanel login` to sign in."))
}

// GoToDashboard enters the protected area.
func (n *Navigator) GoToDashboard() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.notice = ""
	_, _ = fmt.Fprintln(n.out, styleSuccess.Render("Logged in."))
}

// Notice returns the notice printed by the last GoToLogin, if any.
func (n *Navigator) Notice() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.notice
}

// syncWriter serializes writes from the session ticker and the command loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
