package stats

import "github.com/stretchr/testify/mock"

type MockStatsUpdater struct {
	mock.Mock
}

func (m *MockStatsUpdater) Incr(stat string) {
	m.Called(stat)
}

func (m *MockStatsUpdater) Decr(stat string) {
	m.Called(stat)
}

// NopStats satisfies StatsUpdater for tests that don't assert on counters.
type NopStats struct{}

func (NopStats) Incr(string) {}
func (NopStats) Decr(string) {}
