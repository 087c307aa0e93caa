package activitymap_test

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-starter"
	"github.com/goliatone/go-auth-starter/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType:  auth.ActivityEventUserDeleted,
		ActorID:    "admin-42",
		UserID:     "user-100",
		Metadata:   map[string]any{"email": "ada@example.com"},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	assert.Equal(t, "admin-42", out.ActorID)
	assert.Equal(t, "user.deleted", out.Verb)
	assert.Equal(t, "user", out.ObjectType)
	assert.Equal(t, "user-100", out.ObjectID)
	assert.Equal(t, "auth", out.Channel)
	assert.True(t, out.OccurredAt.Equal(ts))
	assert.Equal(t, "ada@example.com", out.Metadata["email"])
	assert.Equal(t, "admin", out.Metadata[activitymap.MetadataKeyActorType])

	// the source metadata is not mutated
	_, leaked := event.Metadata[activitymap.MetadataKeyActorType]
	assert.False(t, leaked)
}

func TestNormalizeFallbacks(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(auth.ActivityEvent{EventType: auth.ActivityEventLoginFailure})
	assert.Equal(t, "anonymous", out.ActorID)
	assert.Empty(t, out.ObjectID)
	assert.Nil(t, out.Metadata)
	assert.False(t, out.OccurredAt.IsZero())

	out = activitymap.Normalize(auth.ActivityEvent{
		EventType: auth.ActivityEventLoginSuccess,
		ActorID:   "u1",
		UserID:    "u1",
	}, activitymap.WithDefaultChannel("web"), activitymap.WithDefaultObjectType("account"))
	assert.Equal(t, "web", out.Channel)
	assert.Equal(t, "account", out.ObjectType)
	assert.Equal(t, "self", out.Metadata[activitymap.MetadataKeyActorType])

	out = activitymap.Normalize(auth.ActivityEvent{EventType: auth.ActivityEventLogout}, activitymap.WithActorFallback("system"))
	assert.Equal(t, "system", out.ActorID)
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := activitymap.NewWriterSink(&buf)
	ctx := context.Background()

	require.NoError(t, sink.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventRegister, ActorID: "u1", UserID: "u1"}))
	require.NoError(t, sink.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventLogout, ActorID: "u1", UserID: "u1"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first activitymap.Normalized
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "auth.register", first.Verb)
	assert.Equal(t, "u1", first.ObjectID)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, stderrors.New("disk full") }

func TestMulti(t *testing.T) {
	var calls []string
	record := func(name string) auth.ActivitySink {
		return auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error {
			calls = append(calls, name)
			return nil
		})
	}

	sink := activitymap.Multi(record("a"), nil, activitymap.NewWriterSink(failingWriter{}), record("b"))
	err := sink.Record(context.Background(), auth.ActivityEvent{EventType: auth.ActivityEventLogout})

	assert.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, calls)
}
