package activitymap_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	auth "github.com/ciphersigma/ieee-sps-gs-website-sub001"
	"github.com/ciphersigma/ieee-sps-gs-website-sub001/activitymap"
)

func TestNormalizeAccountEvent(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType: auth.ActivityEventAccountStatus,
		Actor:     auth.ActorRef{ID: "admin-42", Type: "super_admin"},
		AccountID: "account-100",
		BranchID:  "LDCE",
		Metadata: map[string]any{
			"active": false,
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "admin-42" {
		t.Fatalf("expected actor_id admin-42, got %q", out.ActorID)
	}
	if out.Verb != string(auth.ActivityEventAccountStatus) {
		t.Fatalf("expected verb %q, got %q", auth.ActivityEventAccountStatus, out.Verb)
	}
	if out.ObjectType != activitymap.ObjectAccount || out.ObjectID != "account-100" {
		t.Fatalf("expected account account-100, got %q %q", out.ObjectType, out.ObjectID)
	}
	if out.Channel != "auth" {
		t.Fatalf("expected channel auth, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}
	if out.Metadata["active"] != false {
		t.Fatalf("expected metadata active false, got %#v", out.Metadata["active"])
	}
	if out.Metadata[activitymap.MetadataKeyActorType] != "super_admin" {
		t.Fatalf("expected actor_type super_admin, got %#v", out.Metadata[activitymap.MetadataKeyActorType])
	}
	if out.Metadata[activitymap.MetadataKeyBranchID] != "LDCE" {
		t.Fatalf("expected branch_id LDCE, got %#v", out.Metadata[activitymap.MetadataKeyBranchID])
	}
	if len(event.Metadata) != 1 {
		t.Fatalf("expected source metadata to remain unchanged, got %+v", event.Metadata)
	}
}

func TestNormalizeBranchEvent(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType: auth.ActivityEventBranchRoleAssigned,
		Actor:     auth.ActorRef{Type: "branch_admin"},
		AccountID: "account-7",
		BranchID:  "SVIT",
		Metadata:  map[string]any{activitymap.MetadataKeyActorType: "existing"},
	}

	out := activitymap.Normalize(event,
		activitymap.WithChannel("audit"),
		activitymap.WithClock(func() time.Time { return now }),
	)

	if out.ObjectType != activitymap.ObjectBranch || out.ObjectID != "SVIT" {
		t.Fatalf("expected branch SVIT, got %q %q", out.ObjectType, out.ObjectID)
	}
	if out.ActorID != "account-7" {
		t.Fatalf("expected actor to fall back to the account, got %q", out.ActorID)
	}
	if out.Channel != "audit" {
		t.Fatalf("expected channel audit, got %q", out.Channel)
	}
	if out.Metadata["account_id"] != "account-7" {
		t.Fatalf("expected account_id metadata, got %#v", out.Metadata)
	}
	if out.Metadata[activitymap.MetadataKeyActorType] != "existing" {
		t.Fatalf("expected existing actor_type preserved, got %#v", out.Metadata[activitymap.MetadataKeyActorType])
	}
	if !out.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at from clock, got %v", out.OccurredAt)
	}
}

func TestNormalizeActorFallbackChain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  auth.ActivityEvent
		opts   []activitymap.Option
		expect string
	}{
		{
			name:   "uses actor id when present",
			event:  auth.ActivityEvent{Actor: auth.ActorRef{ID: "actor-1"}, AccountID: "account-1"},
			expect: "actor-1",
		},
		{
			name:   "uses account id when actor id missing",
			event:  auth.ActivityEvent{AccountID: "account-2"},
			expect: "account-2",
		},
		{
			name:   "uses default fallback",
			event:  auth.ActivityEvent{},
			expect: "system",
		},
		{
			name:   "uses configured fallback",
			event:  auth.ActivityEvent{},
			opts:   []activitymap.Option{activitymap.WithActorFallback("cli")},
			expect: "cli",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(tc.event, tc.opts...)
			if out.ActorID != tc.expect {
				t.Fatalf("expected actor_id %q, got %q", tc.expect, out.ActorID)
			}
		})
	}
}

func TestNormalizedArgs(t *testing.T) {
	out := activitymap.Normalized{
		ActorID:  "a",
		Verb:     "account.created",
		Channel:  "auth",
		Metadata: map[string]any{"role": "member", "branch_id": "LDCE"},
	}

	got := fmt.Sprint(out.Args()...)
	want := fmt.Sprint("verb", "account.created", "actor_id", "a", "channel", "auth", "branch_id", "LDCE", "role", "member")
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

type lineLogger struct{ lines []string }

func (l *lineLogger) Debug(string, ...any) {}
func (l *lineLogger) Warn(string, ...any)  {}
func (l *lineLogger) Error(string, ...any) {}
func (l *lineLogger) Info(msg string, args ...any) {
	l.lines = append(l.lines, msg+" "+fmt.Sprint(args...))
}

func TestSinks(t *testing.T) {
	logger := &lineLogger{}
	sink := activitymap.NewLoggingSink(logger)

	err := sink.Record(context.Background(), auth.ActivityEvent{
		EventType: auth.ActivityEventBranchCreated,
		BranchID:  "LDCE",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logger.lines) != 1 || !strings.Contains(logger.lines[0], "branch.created") {
		t.Fatalf("expected one activity line, got %v", logger.lines)
	}

	boom := errors.New("feed down")
	failing := activitymap.NewSink(func(context.Context, activitymap.Normalized) error { return boom })
	if err := failing.Record(context.Background(), auth.ActivityEvent{}); !errors.Is(err, boom) {
		t.Fatalf("expected writer error, got %v", err)
	}

	if err := activitymap.NewSink(nil).Record(context.Background(), auth.ActivityEvent{}); err != nil {
		t.Fatalf("expected nil writer to be a no-op, got %v", err)
	}
}
