package system

import (
	"time"

	coresys "github.com/l1jgo/recycler/internal/core/system"
	"github.com/l1jgo/recycler/internal/recycle"
	"go.uber.org/zap"
)

// ReportSystem periodically logs the service counters and pool count.
// Phase 5 (Report).
type ReportSystem struct {
	svc      *recycle.Service
	log      *zap.Logger
	interval time.Duration
	elapsed  time.Duration
	last     recycle.Stats
}

func NewReportSystem(svc *recycle.Service, log *zap.Logger, interval time.Duration) *ReportSystem {
	return &ReportSystem{svc: svc, log: log, interval: interval}
}

func (s *ReportSystem) Phase() coresys.Phase { return coresys.PhaseReport }

func (s *ReportSystem) Enabled() bool { return s.interval > 0 }

func (s *ReportSystem) Update(dt time.Duration) {
	s.elapsed += dt
	if s.elapsed < s.interval {
		return
	}
	s.elapsed = 0
	s.Report()
}

// Report logs the counters now, with deltas since the previous report.
func (s *ReportSystem) Report() {
	st := s.svc.Stats()
	s.log.Info("pool stats",
		zap.Int("pools", len(s.svc.Handles())),
		zap.Int("requests", st.Requests-s.last.Requests),
		zap.Int("fallbacks", st.Fallbacks-s.last.Fallbacks),
		zap.Int("releases", st.Releases-s.last.Releases),
		zap.Int("hits", st.Hits-s.last.Hits),
		zap.Int("misses", st.Misses-s.last.Misses),
		zap.Int("constructed", st.Constructed),
		zap.Int("destroyed", st.Destroyed),
	)
	s.last = st
}
