package host

import (
	"context"
	"strings"
	"sync"
)

// StubDialog is a canned-answer Dialog for tests and the dev harness.
type StubDialog struct {
	ConfirmResult Result
	InputText     string
	InputResult   Result
}

func (d *StubDialog) Display(context.Context, string) error { return nil }

func (d *StubDialog) Confirm(context.Context, string) (Result, error) {
	if d.ConfirmResult == 0 {
		return ResultCancelled, nil
	}
	return d.ConfirmResult, nil
}

func (d *StubDialog) Input(context.Context, string, string) (string, Result, error) {
	if d.InputResult == 0 {
		return "", ResultCancelled, nil
	}
	return d.InputText, d.InputResult, nil
}

// MemoryToaster records toast messages for assertions.
type MemoryToaster struct {
	mu       sync.Mutex
	Messages []string
}

func (t *MemoryToaster) record(level, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Messages = append(t.Messages, level+": "+msg)
}

func (t *MemoryToaster) Success(msg string) { t.record("success", msg) }
func (t *MemoryToaster) Error(msg string)   { t.record("error", msg) }
func (t *MemoryToaster) Info(msg string)    { t.record("info", msg) }
func (t *MemoryToaster) Warning(msg string) { t.record("warning", msg) }

// Count returns how many toasts were recorded.
func (t *MemoryToaster) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Messages)
}

// Contains reports whether any recorded toast contains the substring.
func (t *MemoryToaster) Contains(substr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range t.Messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// Last returns the most recent toast, or empty.
func (t *MemoryToaster) Last() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.Messages) == 0 {
		return ""
	}
	return t.Messages[len(t.Messages)-1]
}
