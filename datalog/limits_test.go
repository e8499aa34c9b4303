package datalog

import (
	"testing"
	"time"
)

func TestDefaultLimits(t *testing.T) {
	l := DefaultLimits()
	if l.MaxFacts != 1000 {
		t.Errorf("MaxFacts = %d, want 1000", l.MaxFacts)
	}
	if l.MaxIterations != 100 {
		t.Errorf("MaxIterations = %d, want 100", l.MaxIterations)
	}
	if l.MaxTime != 1000*time.Microsecond {
		t.Errorf("MaxTime = %s, want 1000us", l.MaxTime)
	}
	if !l.AllowRegexes {
		t.Errorf("AllowRegexes = false, want true")
	}
	if !l.AllowBlockFacts {
		t.Errorf("AllowBlockFacts = false, want true")
	}
	if l.CheckRevocationID != nil {
		t.Errorf("CheckRevocationID should be nil by default")
	}
	if err := l.Validate(); err != nil {
		t.Errorf("DefaultLimits() should validate, got %v", err)
	}
}

func TestLimits_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(l *Limits)
		wantErr bool
	}{
		{"defaults are valid", func(l *Limits) {}, false},
		{"zero max facts", func(l *Limits) { l.MaxFacts = 0 }, true},
		{"negative max facts", func(l *Limits) { l.MaxFacts = -1 }, true},
		{"zero max iterations", func(l *Limits) { l.MaxIterations = 0 }, true},
		{"negative max iterations", func(l *Limits) { l.MaxIterations = -1 }, true},
		{"zero max time", func(l *Limits) { l.MaxTime = 0 }, true},
		{"negative max time", func(l *Limits) { l.MaxTime = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := DefaultLimits()
			tt.mutate(&l)
			err := l.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
