package schedule

import (
	"context"
	"testing"

	"stampbot/pkg/logx"
)

func TestValidateSpec(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop())

	valid := []string{"", DefaultSpec, "*/5 * * * *", "@hourly"}
	for _, spec := range valid {
		if err := s.ValidateSpec(spec); err != nil {
			t.Fatalf("ValidateSpec(%q) = %v", spec, err)
		}
	}
	invalid := []string{"not a spec", "61 * * * *", "* * *"}
	for _, spec := range invalid {
		if err := s.ValidateSpec(spec); err == nil {
			t.Fatalf("ValidateSpec(%q) should fail", spec)
		}
	}
}

func TestStartRequiresJob(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true}, logx.Nop())
	if err := s.Start(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil job")
	}
}

func TestStartDisabledIsNoop(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: false}, logx.Nop())
	if err := s.Start(context.Background(), func(context.Context) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop(context.Background())
}

func TestDoubleStartFails(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true, Cron: "@hourly"}, logx.Nop())
	job := func(context.Context) {}
	if err := s.Start(context.Background(), job); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(context.Background())
	if err := s.Start(context.Background(), job); err == nil {
		t.Fatal("second Start should fail")
	}
}

func TestApplyRestartsOnSpecChange(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true, Cron: "@hourly"}, logx.Nop())
	if err := s.Start(context.Background(), func(context.Context) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(context.Background())

	if err := s.Apply(Config{Enabled: true, Cron: "@daily"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if s.c == nil {
		t.Fatal("cron should be running after Apply")
	}

	if err := s.Apply(Config{Enabled: false}); err != nil {
		t.Fatalf("Apply(disabled): %v", err)
	}
	if s.c != nil {
		t.Fatal("cron should be stopped when disabled")
	}
}
