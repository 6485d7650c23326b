package pipeline

import "sync"

// Stats holds process-lifetime counters owned by one Pipeline instance.
// There is no ambient global state; callers read a snapshot.
type Stats struct {
	mu               sync.Mutex
	changesDetected  int64
	skippedUnchanged int64
	functionsSynced  int64
	astParseSuccess  int64
	astParseFailure  int64
}

// StatsSnapshot is a point-in-time copy of the pipeline counters.
type StatsSnapshot struct {
	ChangesDetected  int64   `json:"changes_detected"`
	SkippedUnchanged int64   `json:"skipped_unchanged"`
	FunctionsSynced  int64   `json:"functions_synced"`
	ASTParseSuccess  int64   `json:"ast_parse_success"`
	ASTParseFailure  int64   `json:"ast_parse_failure"`
	ASTSuccessRate   float64 `json:"ast_success_rate"`
}

func (s *Stats) addChange() {
	s.mu.Lock()
	s.changesDetected++
	s.mu.Unlock()
}

func (s *Stats) addSkipped() {
	s.mu.Lock()
	s.skippedUnchanged++
	s.mu.Unlock()
}

func (s *Stats) addFunctionsSynced(n int) {
	s.mu.Lock()
	s.functionsSynced += int64(n)
	s.mu.Unlock()
}

func (s *Stats) addParseSuccess() {
	s.mu.Lock()
	s.astParseSuccess++
	s.mu.Unlock()
}

func (s *Stats) addParseFailure() {
	s.mu.Lock()
	s.astParseFailure++
	s.mu.Unlock()
}

// Snapshot returns a copy of the counters. The success rate is 100 when no
// parses were attempted: no evidence of failure.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		ChangesDetected:  s.changesDetected,
		SkippedUnchanged: s.skippedUnchanged,
		FunctionsSynced:  s.functionsSynced,
		ASTParseSuccess:  s.astParseSuccess,
		ASTParseFailure:  s.astParseFailure,
		ASTSuccessRate:   100,
	}
	attempts := s.astParseSuccess + s.astParseFailure
	if attempts > 0 {
		snap.ASTSuccessRate = float64(s.astParseSuccess) / float64(attempts) * 100
	}
	return snap
}
