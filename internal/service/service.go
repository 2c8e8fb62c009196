// Package service implements run reconciliation and reporting over the
// run history store.
package service

import (
	"os"
	"time"

	"github.com/samber/lo"

	"github.com/xiaot623/agentmon/internal/config"
	store "github.com/xiaot623/agentmon/internal/repository"
	"github.com/xiaot623/agentmon/internal/sessionindex"
)

type Service struct {
	store    *store.SQLiteStore
	config   *config.Config
	sessions *sessionindex.Cache

	// Overridable clock, wall time in production.
	now func() time.Time
}

func New(st *store.SQLiteStore, cfg *config.Config) *Service {
	return &Service{
		store:    st,
		config:   cfg,
		sessions: sessionindex.NewCache(cfg.AgentsDir()),
		now:      time.Now,
	}
}

// ListAgents returns the configured agent ids, the directory names under
// the agents root. No reconciliation involved.
func (s *Service) ListAgents() []string {
	entries, err := os.ReadDir(s.config.AgentsDir())
	if err != nil {
		return []string{}
	}
	// os.ReadDir returns entries sorted by name.
	return lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		return e.Name(), e.IsDir()
	})
}
