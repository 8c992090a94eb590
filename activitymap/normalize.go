// Package activitymap turns auth activity events into a flat record for
// audit feeds and log pipelines.
package activitymap

import (
	"context"
	"sort"
	"strings"
	"time"

	auth "github.com/ciphersigma/ieee-sps-gs-website-sub001"
)

const (
	// MetadataKeyActorType stores the actor type derived from auth.ActorRef.Type.
	MetadataKeyActorType = "actor_type"
	// MetadataKeyBranchID stores the branch an account event touched.
	MetadataKeyBranchID = "branch_id"
)

const (
	ObjectAccount = "account"
	ObjectBranch  = "branch"
)

const (
	defaultChannel = "auth"
	defaultActorID = "system"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	actorFallback string
	clock         func() time.Time
}

// Normalize converts an auth.ActivityEvent into the normalized shape. Branch
// events point at the branch, everything else at the account.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := normalizeOptions{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
		clock:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := firstNonEmpty(
		strings.TrimSpace(event.Actor.ID),
		strings.TrimSpace(event.AccountID),
		options.actorFallback,
	)

	objectType, objectID := resolveObject(event)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.clock().UTC()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event, objectType),
		OccurredAt: occurredAt,
	}
}

// WithChannel sets the channel for normalized records.
func WithChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		if channel = strings.TrimSpace(channel); channel != "" {
			opts.channel = channel
		}
	}
}

// WithActorFallback sets the actor id used when neither actor nor account is known.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

func WithClock(clock func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if clock != nil {
			opts.clock = clock
		}
	}
}

// Args flattens the record into key/value pairs for structured loggers.
// Metadata keys are emitted in sorted order.
func (n Normalized) Args() []any {
	args := []any{
		"verb", n.Verb,
		"actor_id", n.ActorID,
		"channel", n.Channel,
	}
	if n.ObjectType != "" {
		args = append(args, "object_type", n.ObjectType, "object_id", n.ObjectID)
	}

	keys := make([]string, 0, len(n.Metadata))
	for k := range n.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, k, n.Metadata[k])
	}
	return args
}

// NewSink adapts a writer of normalized records to auth.ActivitySink
func NewSink(write func(context.Context, Normalized) error, opts ...Option) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		if write == nil {
			return nil
		}
		return write(ctx, Normalize(event, opts...))
	})
}

// NewLoggingSink logs every normalized record at info level
func NewLoggingSink(logger auth.Logger, opts ...Option) auth.ActivitySink {
	return NewSink(func(_ context.Context, record Normalized) error {
		if logger != nil {
			logger.Info("activity", record.Args()...)
		}
		return nil
	}, opts...)
}

func resolveObject(event auth.ActivityEvent) (string, string) {
	switch event.EventType {
	case auth.ActivityEventBranchCreated,
		auth.ActivityEventBranchRoleAssigned,
		auth.ActivityEventBranchRoleCleared:
		return ObjectBranch, strings.TrimSpace(event.BranchID)
	}
	if id := strings.TrimSpace(event.AccountID); id != "" {
		return ObjectAccount, id
	}
	return "", ""
}

func normalizeMetadata(event auth.ActivityEvent, objectType string) map[string]any {
	metadata := cloneMap(event.Metadata)

	set := func(key, value string) {
		if value == "" {
			return
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[key]; !exists {
			metadata[key] = value
		}
	}

	set(MetadataKeyActorType, strings.TrimSpace(event.Actor.Type))
	if objectType == ObjectAccount {
		set(MetadataKeyBranchID, strings.TrimSpace(event.BranchID))
	}
	if objectType == ObjectBranch {
		set("account_id", strings.TrimSpace(event.AccountID))
	}

	return metadata
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
