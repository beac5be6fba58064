package xmlreader

import (
	"fmt"
	"sync"
)

// Level is the severity of a Diagnostic.
type Level int

const (
	LevelWarning Level = iota + 1
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Diagnostic is a raw message from the parser or the schema validator.
type Diagnostic struct {
	Level   Level
	Code    int
	File    string
	Line    int
	Column  int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Level, d.Message)
}

// Sink receives diagnostics as a Reader produces them.
type Sink interface {
	Report(Diagnostic)
}

// Buffer is a Sink that keeps diagnostics in emission order until they are
// drained.
type Buffer struct {
	mu    sync.Mutex
	items []Diagnostic
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Report appends d.
func (b *Buffer) Report(d Diagnostic) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, d)
}

// Drain returns the buffered diagnostics and empties the buffer.
func (b *Buffer) Drain() []Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	return out
}

// Clear discards the buffered diagnostics.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = nil
}

// Len returns the number of buffered diagnostics.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
