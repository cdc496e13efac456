// Package reporter renders scenario progress on a terminal.
//
// All terminal state (the deferred newline, the last printed line and the
// spinner) is guarded by a single mutex shared with the spinner goroutine,
// so foreground writes and spinner redraws never interleave.
package reporter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/ormasoftchile/upkeep/pkg/scenario"
)

// DefaultWidth is the assumed terminal width.
const DefaultWidth = 80

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("reporter closed")

// Reporter writes lifecycle events, status labels and prompts to a terminal.
type Reporter struct {
	mu sync.Mutex

	out      io.Writer
	in       LineReader
	width    int
	interval time.Duration
	frames   []string
	color    ColorMode
	logger   *slog.Logger
	labels   map[scenario.Status]string

	newLineNextTime bool
	lastLine        string
	err             error
	closed          bool

	spinner *Spinner
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithWidth sets the line width used for rules and label alignment.
func WithWidth(width int) Option {
	return func(r *Reporter) {
		if width > 0 {
			r.width = width
		}
	}
}

// WithInterval sets the spinner tick interval.
func WithInterval(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithFrames sets the spinner glyphs.
func WithFrames(frames ...string) Option {
	return func(r *Reporter) {
		if len(frames) > 0 {
			r.frames = frames
		}
	}
}

// WithColor sets when status labels are colored.
func WithColor(mode ColorMode) Option {
	return func(r *Reporter) {
		r.color = mode
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reporter) {
		r.logger = logger
	}
}

// WithLineReader replaces the plain line reader built from the input stream,
// for example with a ReadlineReader.
func WithLineReader(lr LineReader) Option {
	return func(r *Reporter) {
		r.in = lr
	}
}

// New creates a Reporter writing to out and reading answers from in, and
// starts its spinner goroutine. Call Close to stop it.
func New(out io.Writer, in io.Reader, opts ...Option) *Reporter {
	r := &Reporter{
		out:      out,
		width:    DefaultWidth,
		interval: spinner.Line.FPS,
		frames:   spinner.Line.Frames,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if in != nil {
		r.in = &plainReader{r: bufio.NewReader(in)}
	}
	for _, opt := range opts {
		opt(r)
	}
	r.labels = renderLabels(newRenderer(out, r.color))
	r.spinner = newSpinner(r)
	go r.spinner.loop()
	return r
}

// Spinner returns the reporter's spinner.
func (r *Reporter) Spinner() *Spinner {
	return r.spinner
}

// Width is the configured line width.
func (r *Reporter) Width() int {
	return r.width
}

// Err returns the first terminal write error, if any.
func (r *Reporter) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateErr()
}

// Close stops the spinner goroutine and waits for it to exit.
// Closing twice is a no-op.
func (r *Reporter) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.spinner.active = false
	close(r.spinner.stop)
	r.mu.Unlock()

	<-r.spinner.done
	if c, ok := r.in.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Print writes text without a trailing newline, first emitting a newline
// owed by a previous Puts.
func (r *Reporter) Print(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printLocked(text)
	return r.stateErr()
}

// Puts writes text and defers its newline, so that a status label can still
// be appended to the same line.
func (r *Reporter) Puts(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putsLocked(text)
	return r.stateErr()
}

// ClearLine blanks the current terminal line.
func (r *Reporter) ClearLine() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLineLocked()
	return r.stateErr()
}

// HLine writes a horizontal rule as wide as the line.
func (r *Reporter) HLine() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putsLocked(strings.Repeat("-", r.width))
	return r.stateErr()
}

// NewLineIfNeeded emits a newline owed by a previous Puts.
func (r *Reporter) NewLineIfNeeded() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.newLineIfNeededLocked()
	return r.stateErr()
}

// Ask prints message, waits for one line of input and returns it lower-cased
// and trimmed. The lock is not held while waiting, so the spinner keeps
// ticking; callers deactivate it first if it would draw over the prompt.
// A PromptReader draws the prompt outside the lock, so Ask deactivates the
// spinner itself in that case. Closed input returns io.EOF.
func (r *Reporter) Ask(message string) (string, error) {
	r.mu.Lock()
	if err := r.stateErr(); err != nil {
		r.mu.Unlock()
		return "", err
	}
	if r.in == nil {
		r.mu.Unlock()
		return "", io.EOF
	}
	pr, prompts := r.in.(PromptReader)
	if prompts {
		r.spinner.active = false
		r.newLineIfNeededLocked()
	} else {
		r.printLocked(message)
	}
	// the answer is typed on the prompt line
	r.newLineNextTime = false
	r.lastLine = ""
	err := r.err
	r.mu.Unlock()
	if err != nil {
		return "", err
	}

	var (
		line    string
		readErr error
	)
	if prompts {
		line, readErr = pr.ReadLinePrompt(message)
	} else {
		line, readErr = r.in.ReadLine()
	}
	if readErr != nil {
		return "", readErr
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	r.logger.Debug("operator answered", "prompt", message, "answer", answer)
	return answer, nil
}

// WithSpinner runs fn with the spinner active and showing message. The
// spinner is deactivated on every exit path, including a panic in fn.
func (r *Reporter) WithSpinner(message string, fn func(scenario.Spinner) error) error {
	if err := r.NewLineIfNeeded(); err != nil {
		return err
	}
	defer func() {
		r.spinner.Deactivate()
		r.mu.Lock()
		r.newLineNextTime = true
		r.mu.Unlock()
	}()
	r.spinner.Activate()
	r.spinner.Update(message)

	if err := fn(r.spinner); err != nil {
		return err
	}
	return r.Err()
}

// PutsStatus appends the label for status to the last printed line, aligned
// so the label ends at the line width. When the line is too long the label
// goes on a new line. Statuses without a label panic.
func (r *Reporter) PutsStatus(status scenario.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putsStatusLocked(status)
	return r.stateErr()
}

func (r *Reporter) putsStatusLocked(status scenario.Status) {
	label, ok := r.labels[status]
	if !ok {
		panic(fmt.Sprintf("reporter: no label for status %q", status))
	}
	labelWidth := visibleWidth(label)
	padding := r.width - visibleWidth(r.lastLine) - labelWidth
	if padding < 0 {
		r.newLineIfNeededLocked()
		padding = max(r.width-labelWidth, 0)
	}
	r.writeLocked(strings.Repeat(" ", padding) + label)
	r.newLineNextTime = true
}

func (r *Reporter) printLocked(text string) {
	r.newLineIfNeededLocked()
	r.writeLocked(text)
	r.recordLastLine(text)
}

func (r *Reporter) putsLocked(text string) {
	r.newLineIfNeededLocked()
	r.writeLocked(text)
	r.newLineNextTime = true
	r.recordLastLine(text)
}

func (r *Reporter) newLineIfNeededLocked() {
	if r.newLineNextTime {
		r.writeLocked("\n")
		r.newLineNextTime = false
	}
}

func (r *Reporter) clearLineLocked() {
	r.newLineIfNeededLocked()
	r.writeLocked("\r" + strings.Repeat(" ", r.width) + "\r")
	r.lastLine = ""
}

func (r *Reporter) recordLastLine(text string) {
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		r.lastLine = text[i+1:]
		return
	}
	r.lastLine = text
}

// writeLocked writes to the terminal unless a previous write failed or the
// reporter is closed.
func (r *Reporter) writeLocked(s string) {
	if r.err != nil || r.closed || s == "" {
		return
	}
	if _, err := io.WriteString(r.out, s); err != nil {
		r.err = fmt.Errorf("write terminal: %w", err)
		r.logger.Debug("terminal write failed", "error", err)
	}
}

func (r *Reporter) stateErr() error {
	if r.err != nil {
		return r.err
	}
	if r.closed {
		return ErrClosed
	}
	return nil
}

// Compile-time check that the reporter can drive step progress.
var _ scenario.Progress = (*Reporter)(nil)

// plainReader reads lines from a buffered stream.
type plainReader struct {
	r *bufio.Reader
}

func (p *plainReader) ReadLine() (string, error) {
	line, err := p.r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// LineReader reads one line of operator input.
type LineReader interface {
	ReadLine() (string, error)
}

// PromptReader is a LineReader that draws the prompt itself.
type PromptReader interface {
	LineReader
	ReadLinePrompt(prompt string) (string, error)
}

// Lines returns a LineReader over a stream.
func Lines(in io.Reader) LineReader {
	return &plainReader{r: bufio.NewReader(in)}
}
