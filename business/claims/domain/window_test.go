package domain

import (
	"testing"
	"time"
)

func TestWindowTransitions(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		path    []WindowState
		wantErr bool
	}{
		{
			name: "happy_path_claimed",
			path: []WindowState{WindowEligible, WindowClaiming, WindowClaimed},
		},
		{
			name: "eligible_back_to_pending",
			path: []WindowState{WindowEligible, WindowPending, WindowEligible},
		},
		{
			name: "missed_while_pending",
			path: []WindowState{WindowMissed},
		},
		{
			name: "claiming_dropped_back_to_eligible",
			path: []WindowState{WindowEligible, WindowClaiming, WindowEligible},
		},
		{
			name: "claiming_aborted_back_to_pending",
			path: []WindowState{WindowEligible, WindowClaiming, WindowPending},
		},
		{
			name: "claiming_lost_race_missed",
			path: []WindowState{WindowEligible, WindowClaiming, WindowMissed},
		},
		{
			name:    "pending_cannot_jump_to_claiming",
			path:    []WindowState{WindowClaiming},
			wantErr: true,
		},
		{
			name:    "pending_cannot_jump_to_claimed",
			path:    []WindowState{WindowClaimed},
			wantErr: true,
		},
		{
			name:    "claimed_is_terminal",
			path:    []WindowState{WindowEligible, WindowClaiming, WindowClaimed, WindowPending},
			wantErr: true,
		},
		{
			name:    "missed_is_terminal",
			path:    []WindowState{WindowMissed, WindowPending},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewRewardWindow(1, now)
			var err error
			for _, next := range tt.path {
				if err = w.Transition(next, now.Add(time.Minute)); err != nil {
					break
				}
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("transition error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWindowEligibleAtSetOnce(t *testing.T) {
	now := time.Now()
	w := NewRewardWindow(1, now)

	first := now.Add(time.Minute)
	if err := w.Transition(WindowEligible, first); err != nil {
		t.Fatal(err)
	}
	if err := w.Transition(WindowPending, now.Add(2*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := w.Transition(WindowEligible, now.Add(3*time.Minute)); err != nil {
		t.Fatal(err)
	}

	if !w.EligibleAt.Equal(first) {
		t.Errorf("EligibleAt = %v, want first eligibility time %v", w.EligibleAt, first)
	}
}

func TestWindowTerminalAndDuration(t *testing.T) {
	open := time.Now()
	w := NewRewardWindow(1, open)

	if w.IsTerminal() {
		t.Fatal("new window should not be terminal")
	}

	closed := open.Add(10 * time.Minute)
	if err := w.Transition(WindowMissed, closed); err != nil {
		t.Fatal(err)
	}
	if !w.IsTerminal() {
		t.Error("missed window should be terminal")
	}
	if got := w.Duration(closed.Add(time.Hour)); got != 10*time.Minute {
		t.Errorf("Duration() = %v, want 10m", got)
	}
}

func TestSubmissionTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []SubmissionState
		wantErr bool
	}{
		{
			name: "confirmed_path",
			path: []SubmissionState{SubmissionSigned, SubmissionBroadcast, SubmissionConfirmed},
		},
		{
			name: "dropped_path",
			path: []SubmissionState{SubmissionSigned, SubmissionBroadcast, SubmissionDropped},
		},
		{
			name: "superseded_by_replacement",
			path: []SubmissionState{SubmissionSigned, SubmissionBroadcast, SubmissionSuperseded},
		},
		{
			name:    "cannot_broadcast_unsigned",
			path:    []SubmissionState{SubmissionBroadcast},
			wantErr: true,
		},
		{
			name:    "confirmed_is_terminal",
			path:    []SubmissionState{SubmissionSigned, SubmissionBroadcast, SubmissionConfirmed, SubmissionDropped},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewPendingSubmission(1, 7, 1, nil, 400000)
			var err error
			for _, next := range tt.path {
				if err = s.Transition(next); err != nil {
					break
				}
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("transition error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
