// Package schedule triggers the reconciliation cycle on a cron cadence.
package schedule

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"stampbot/pkg/logx"
)

// DefaultSpec fires at every tenth minute.
const DefaultSpec = "0,10,20,30,40,50 * * * *"

type Config struct {
	Enabled  bool
	Cron     string
	Timezone string // IANA TZ, e.g. "Europe/Berlin"; empty means local
}

type Service struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger

	parser cron.Parser
	c      *cron.Cron

	ctx context.Context
	job func(ctx context.Context)
}

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		log:    log.With(logx.String("comp", "schedule")),
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// ValidateSpec reports whether spec parses as a cron expression.
func (s *Service) ValidateSpec(spec string) error {
	_, err := s.parser.Parse(resolveSpec(spec))
	return err
}

func resolveSpec(spec string) string {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return DefaultSpec
	}
	return spec
}

// Start registers the job and starts ticking. The job receives the Start
// context; it is expected to guard against overlapping runs itself (see
// reconcile.TryRun).
func (s *Service) Start(ctx context.Context, job func(ctx context.Context)) error {
	if job == nil {
		return errors.New("schedule: job is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.c != nil {
		return errors.New("schedule: already started")
	}
	s.ctx = ctx
	s.job = job

	if !s.cfg.Enabled {
		s.log.Info("scheduler disabled")
		return nil
	}
	return s.startLocked()
}

func (s *Service) startLocked() error {
	loc := s.loadLocationLocked()
	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))

	spec := resolveSpec(s.cfg.Cron)
	if _, err := c.AddFunc(spec, func() { s.job(s.ctx) }); err != nil {
		return err
	}
	c.Start()
	s.c = c
	s.log.Info("scheduler started", logx.String("spec", spec), logx.String("tz", loc.String()))
	return nil
}

// Apply reconfigures the cadence at runtime. A changed spec or timezone
// restarts the underlying cron.
func (s *Service) Apply(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := cfg.Enabled != s.cfg.Enabled ||
		resolveSpec(cfg.Cron) != resolveSpec(s.cfg.Cron) ||
		strings.TrimSpace(cfg.Timezone) != strings.TrimSpace(s.cfg.Timezone)
	s.cfg = cfg

	if s.job == nil || !changed {
		return nil
	}

	s.stopLocked()
	if !cfg.Enabled {
		s.log.Info("scheduler disabled")
		return nil
	}
	return s.startLocked()
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.log.Info("scheduler stopped")
}

func (s *Service) stopLocked() {
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
	s.c = nil
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
