package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/taskward-api/internal/printing"
)

// MockPrinter implements printing.Printer for testing.
type MockPrinter struct {
	// PrintFn customizes behavior when set.
	PrintFn func(ctx context.Context, snapshot printing.TaskSnapshot) (string, error)

	mu      sync.Mutex
	Printed []printing.TaskSnapshot
}

// NewMockPrinter creates a new mock printer.
func NewMockPrinter() *MockPrinter {
	return &MockPrinter{}
}

// Print implements the Printer interface. The default behavior records the
// snapshot and returns a fake artifact reference.
func (m *MockPrinter) Print(ctx context.Context, snapshot printing.TaskSnapshot) (string, error) {
	if m.PrintFn != nil {
		return m.PrintFn(ctx, snapshot)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Printed = append(m.Printed, snapshot)
	return "mock:" + snapshot.ID.String(), nil
}

// Name implements the Printer interface
func (m *MockPrinter) Name() string { return "mock" }

// PrintedCount returns how many snapshots were recorded.
func (m *MockPrinter) PrintedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Printed)
}

// Ensure MockPrinter implements printing.Printer interface
var _ printing.Printer = (*MockPrinter)(nil)
