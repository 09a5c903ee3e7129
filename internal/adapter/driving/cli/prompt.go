package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrInputClosed is returned when input ends while a prompt is waiting.
var ErrInputClosed = errors.New("input closed")

type readRequest struct {
	secret bool
}

type readResult struct {
	line string
	err  error
}

// Prompter reads answers from the input one line at a time. Reads happen on
// a single goroutine and only on request, so a waiting prompt can be
// abandoned when its context ends without losing later input. Secret reads
// disable echo when the input is a terminal. A Prompter is used from one
// goroutine at a time.
type Prompter struct {
	out     io.Writer
	reqs    chan readRequest
	res     chan readResult
	pending bool // a request was sent but its result not yet taken
	onLine  func()
}

// NewPrompter starts the reader goroutine over in. Prompts are written to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{
		out:  out,
		reqs: make(chan readRequest),
		res:  make(chan readResult, 1),
	}
	go p.loop(in)
	return p
}

func (p *Prompter) loop(in io.Reader) {
	reader := bufio.NewReader(in)
	fd, isTerm := terminalFD(in)

	for req := range p.reqs {
		if req.secret && isTerm {
			b, err := term.ReadPassword(fd)
			_, _ = fmt.Fprintln(p.out)
			p.res <- readResult{line: string(b), err: err}
			continue
		}

		line, err := reader.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			if errors.Is(err, io.EOF) {
				err = ErrInputClosed
			}
			p.res <- readResult{err: err}
			continue
		}
		p.res <- readResult{line: strings.TrimRight(line, "\r\n")}
	}
}

func terminalFD(in io.Reader) (int, bool) {
	f, ok := in.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// OnLine sets fn to run after every line the user enters, including the
// answers to nested prompts. It returns a function restoring the previous hook.
func (p *Prompter) OnLine(fn func()) (restore func()) {
	prev := p.onLine
	p.onLine = fn
	return func() { p.onLine = prev }
}

// Line prints prompt and returns the next input line without its newline.
func (p *Prompter) Line(ctx context.Context, prompt string) (string, error) {
	return p.read(ctx, prompt, false)
}

// Secret prints prompt and reads a line without echo.
func (p *Prompter) Secret(ctx context.Context, prompt string) (string, error) {
	return p.read(ctx, prompt, true)
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func (p *Prompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	answer, err := p.Line(ctx, prompt+" [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Required re-asks until a non-blank answer is given.
func (p *Prompter) Required(ctx context.Context, prompt string, secret bool) (string, error) {
	for {
		answer, err := p.read(ctx, prompt, secret)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(answer) != "" {
			return answer, nil
		}
		_, _ = fmt.Fprintln(p.out, "A value is required.")
	}
}

func (p *Prompter) read(ctx context.Context, prompt string, secret bool) (string, error) {
	if prompt != "" {
		_, _ = fmt.Fprint(p.out, prompt)
	}

	// An abandoned read is still outstanding; its line answers this prompt.
	if !p.pending {
		select {
		case p.reqs <- readRequest{secret: secret}:
			p.pending = true
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	select {
	case r := <-p.res:
		p.pending = false
		if r.err == nil && p.onLine != nil {
			p.onLine()
		}
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
