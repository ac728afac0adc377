package model

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func closed(id string, minutes float64) TimeTrackingRecord {
	end := t0.Add(time.Duration(minutes * float64(time.Minute)))
	return TimeTrackingRecord{ID: id, UserID: "u1", StartTime: t0, EndTime: &end, Duration: minutes}
}

func TestCalculateCost(t *testing.T) {
	tests := []struct {
		name      string
		timeSpent float64
		rate      *float64
		want      float64
	}{
		{"two hours at 60", 120, Ptr(60.0), 120.00},
		{"rounds to cents", 50, Ptr(7.0), 5.83},
		{"no rate", 120, nil, 0},
		{"zero rate", 120, Ptr(0.0), 0},
		{"no time", 0, Ptr(60.0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateCost(tt.timeSpent, tt.rate); got != tt.want {
				t.Errorf("CalculateCost(%v, %v) = %v, want %v", tt.timeSpent, tt.rate, got, tt.want)
			}
		})
	}
}

func TestTimeSpentFromIgnoresOpenSessions(t *testing.T) {
	records := []TimeTrackingRecord{
		closed("a", 10),
		closed("b", 15),
		{ID: "c", UserID: "u1", StartTime: t0, Duration: 99},
	}
	if got := TimeSpentFrom(records); got != 25 {
		t.Errorf("TimeSpentFrom = %v, want 25", got)
	}
	if got := OpenSessions(records); !cmp.Equal(got, []int{2}) {
		t.Errorf("OpenSessions = %v, want [2]", got)
	}
}

func TestRecordClose(t *testing.T) {
	r := TimeTrackingRecord{ID: "s", StartTime: t0}
	c := r.Close(t0.Add(125 * time.Second))
	if c.Open() {
		t.Fatal("closed record still open")
	}
	if got := Round2(c.Duration); got != 2.08 {
		t.Errorf("duration = %v, want ~2.08", c.Duration)
	}
	if !r.Open() {
		t.Error("Close mutated the receiver")
	}
}

func TestTaskPatchRecomputesDerivedFields(t *testing.T) {
	task := Task{ID: "t1", TimeSpent: 60, HourlyRate: Ptr(30.0)}
	task.Derive(false)
	if task.Cost != 30 {
		t.Fatalf("initial cost = %v", task.Cost)
	}

	got, changed := TaskPatch{HourlyRate: Ptr(60.0)}.Apply(task)
	if got.Cost != 60 {
		t.Errorf("cost after rate change = %v, want 60", got.Cost)
	}
	if !cmp.Equal(changed, []string{FieldHourlyRate, FieldTimeSpent, FieldCost}) {
		t.Errorf("changed = %v", changed)
	}

	history := []TimeTrackingRecord{closed("a", 90), {ID: "b", StartTime: t0}}
	got, _ = TaskPatch{TimeTracking: &history, TimeSpent: Ptr(999.0)}.Apply(got)
	if got.TimeSpent != 90 {
		t.Errorf("time spent from history = %v, want 90", got.TimeSpent)
	}
	if got.Cost != 90 {
		t.Errorf("cost from history = %v, want 90", got.Cost)
	}
}

func TestTaskPatchTitleOnlyLeavesDerivedAlone(t *testing.T) {
	task := Task{ID: "t1", Title: "old", TimeSpent: 30, Cost: 12.5}
	got, changed := TaskPatch{Title: Ptr("new")}.Apply(task)
	if got.Title != "new" || got.Cost != 12.5 {
		t.Errorf("unexpected task %+v", got)
	}
	if !cmp.Equal(changed, []string{FieldTitle}) {
		t.Errorf("changed = %v", changed)
	}
}

func TestTaskPatchDoesNotAlias(t *testing.T) {
	task := Task{ID: "t1", Tags: []string{"a"}}
	got, _ := TaskPatch{Title: Ptr("x")}.Apply(task)
	got.Tags[0] = "mutated"
	if task.Tags[0] != "a" {
		t.Error("Apply aliased the tag slice")
	}
}

func TestInvitationExpiry(t *testing.T) {
	inv := Invitation{Status: InvitationPending, InvitedAt: t0, ExpiresAt: t0.Add(InvitationTTL)}

	if inv.Expired(t0.Add(24 * time.Hour)) {
		t.Error("invitation expired after one day")
	}
	if !inv.Expired(t0.Add(8 * 24 * time.Hour)) {
		t.Error("invitation not expired after eight days")
	}

	inv.Status = InvitationAccepted
	if !inv.Expired(t0.Add(8 * 24 * time.Hour)) {
		t.Error("stored status must not override expiry time")
	}
	if inv.Acceptable(t0) {
		t.Error("accepted invitation is acceptable again")
	}
}

func TestInviteeName(t *testing.T) {
	if got := (Invitation{Email: "ada@example.com"}).InviteeName(); got != "ada" {
		t.Errorf("InviteeName = %q", got)
	}
	if got := (Invitation{Email: "ada@example.com", Name: "Ada L"}).InviteeName(); got != "Ada L" {
		t.Errorf("InviteeName = %q", got)
	}
}

func TestProjectIndex(t *testing.T) {
	p := Project{ID: "p1", Tasks: []string{"a"}}
	p2 := p.WithTask("b").WithTask("b")
	if !cmp.Equal(p2.Tasks, []string{"a", "b"}) {
		t.Errorf("WithTask = %v", p2.Tasks)
	}
	p3 := p2.WithoutTask("a")
	if !cmp.Equal(p3.Tasks, []string{"b"}) {
		t.Errorf("WithoutTask = %v", p3.Tasks)
	}
	if !cmp.Equal(p2.Tasks, []string{"a", "b"}) {
		t.Error("WithoutTask mutated the original index")
	}
}

func TestValidate(t *testing.T) {
	var verr *ValidationError

	err := Task{ProjectID: "p", CreatedByID: "u"}.Validate()
	if !errors.As(err, &verr) || verr.Field != FieldTitle {
		t.Errorf("expected title error, got %v", err)
	}

	err = Client{Name: "Acme", Email: "not-an-email"}.Validate()
	if !errors.As(err, &verr) || verr.Field != FieldEmail {
		t.Errorf("expected email error, got %v", err)
	}

	if err := (Task{Title: "x", ProjectID: "p", CreatedByID: "u", Status: StatusDone}).Validate(); err != nil {
		t.Errorf("valid task rejected: %v", err)
	}
}
