package alerts

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from   Status
		action Action
		want   bool
	}{
		{StatusActive, ActionAcknowledge, true},
		{StatusAcknowledged, ActionAcknowledge, false},
		{StatusResolved, ActionAcknowledge, false},
		{StatusActive, ActionResolve, true},
		{StatusAcknowledged, ActionResolve, true},
		{StatusResolved, ActionResolve, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.action); got != tc.want {
			t.Fatalf("%s from %s: got %v", tc.action, tc.from, got)
		}
	}
	if err := CheckTransition(StatusResolved, ActionResolve); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Fatalf("expected transition error, got %v", err)
	}
}

func TestFilterWildcardsAndConjunction(t *testing.T) {
	list := []Alert{
		{ID: "1", Status: StatusActive, Severity: SeverityHigh},
		{ID: "2", Status: StatusActive, Severity: SeverityLow},
		{ID: "3", Status: StatusResolved, Severity: SeverityHigh},
	}
	if got := (Filter{Status: All, Severity: All}).Apply(list); len(got) != 3 {
		t.Fatalf("wildcards should keep all, got %d", len(got))
	}
	got := (Filter{Status: "active", Severity: "high"}).Apply(list)
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("unexpected conjunction %+v", got)
	}
	if got := (Filter{Severity: "high"}).Apply(list); len(got) != 2 {
		t.Fatalf("severity only: got %d", len(got))
	}
	if list[0].ID != "1" || len(list) != 3 {
		t.Fatalf("filter must not mutate input")
	}
}

func TestCountAndActive(t *testing.T) {
	list := []Alert{
		{ID: "1", Status: StatusActive, Severity: SeverityCritical},
		{ID: "2", Status: StatusAcknowledged, Severity: SeverityLow},
		{ID: "3", Status: StatusActive, Severity: SeverityLow},
		{ID: "4", Status: StatusResolved, Severity: SeverityMedium},
	}
	counts := Count(list)
	if counts.Active != 2 || counts.Acknowledged != 1 || counts.Resolved != 1 || counts.BySeverity[SeverityLow] != 2 {
		t.Fatalf("unexpected counts %+v", counts)
	}
	if counts.BySeverity[SeverityHigh] != 0 {
		t.Fatalf("expected zero high")
	}
	top := Active(list, 1)
	if len(top) != 1 || top[0].ID != "1" {
		t.Fatalf("unexpected active %+v", top)
	}
}
