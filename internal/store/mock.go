package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fjacquet/sales-etl/internal/models"
)

// MockRunStore is an in-memory RunStore for testing.
type MockRunStore struct {
	mu      sync.Mutex
	runs    []RunSummary
	monthly map[string][]models.MonthlyRecord
	nextID  int
	Closed  bool

	// Error flags for testing error conditions
	SaveRunError  error
	ListRunsError error
}

// NewMockRunStore returns an empty MockRunStore.
func NewMockRunStore() *MockRunStore {
	return &MockRunStore{monthly: make(map[string][]models.MonthlyRecord)}
}

// SaveRun records summary and returns a sequential ID when none is set.
func (m *MockRunStore) SaveRun(_ context.Context, summary RunSummary, records []models.MonthlyRecord) (string, error) {
	if m.SaveRunError != nil {
		return "", m.SaveRunError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if summary.ID == "" {
		m.nextID++
		summary.ID = fmt.Sprintf("run-%d", m.nextID)
	}
	m.runs = append(m.runs, summary)
	m.monthly[summary.ID] = append([]models.MonthlyRecord(nil), records...)
	return summary.ID, nil
}

// ListRuns returns the saved runs, newest first.
func (m *MockRunStore) ListRuns(_ context.Context) ([]RunSummary, error) {
	if m.ListRunsError != nil {
		return nil, m.ListRunsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]RunSummary(nil), m.runs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// MonthlyForRun returns the records saved with runID.
func (m *MockRunStore) MonthlyForRun(_ context.Context, runID string) ([]models.MonthlyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, ok := m.monthly[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return append([]models.MonthlyRecord(nil), records...), nil
}

// Close marks the store closed.
func (m *MockRunStore) Close() error {
	m.Closed = true
	return nil
}
