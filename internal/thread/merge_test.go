package thread

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/message-whisperer/agent-console/internal/model"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(offset time.Duration) *time.Time {
	t := base.Add(offset)
	return &t
}

func pending(id, content string, insertedAt time.Time) Pending {
	ts := insertedAt
	return Pending{
		Message: model.Message{
			ID:              model.OptimisticIDPrefix + id,
			ClientMessageID: "cm-" + id,
			Content:         content,
			Sender:          model.SenderAgent,
			Timestamp:       &ts,
			Status:          model.DeliverySending,
		},
		InsertedAt: insertedAt,
	}
}

func assertNonDecreasing(t *testing.T, msgs []model.Message, now time.Time) {
	t.Helper()
	for i := 1; i < len(msgs); i++ {
		prev := msgs[i-1].EffectiveTime(now)
		cur := msgs[i].EffectiveTime(now)
		assert.False(t, cur.Before(prev), "message %d (%s) sorts before %d (%s)", i, msgs[i].ID, i-1, msgs[i-1].ID)
	}
}

func TestMerge_SortsByEffectiveTime(t *testing.T) {
	now := base.Add(time.Hour)
	server := []model.Message{
		{ID: "m3", Content: "third", Sender: model.SenderUser, Timestamp: at(3 * time.Minute)},
		{ID: "m1", Content: "first", Sender: model.SenderUser, Timestamp: at(time.Minute)},
		{ID: "m2", Content: "second", Sender: model.SenderBot, CreatedAt: at(2 * time.Minute)},
		{ID: "m9", Content: "no time", Sender: model.SenderBot},
	}
	local := []Pending{pending("a", "between", base.Add(150*time.Second))}

	merged := Merge(server, local, now)

	require.Len(t, merged, 5)
	ids := make([]string, len(merged))
	for i, m := range merged {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"m1", "m2", model.OptimisticIDPrefix + "a", "m3", "m9"}, ids)
	assertNonDecreasing(t, merged, now)
}

func TestMerge_ArrivalOrderDoesNotMatter(t *testing.T) {
	now := base.Add(time.Hour)
	server := []model.Message{
		{ID: "m2", Timestamp: at(2 * time.Second), Sender: model.SenderUser},
		{ID: "m1", Timestamp: at(time.Second), Sender: model.SenderUser},
	}
	local := []Pending{
		pending("b", "late", base.Add(5*time.Second)),
		pending("a", "early", base),
	}

	assertNonDecreasing(t, Merge(server, local, now), now)
}

func TestReconcile(t *testing.T) {
	now := base.Add(time.Minute)

	t.Run("matches by client message id", func(t *testing.T) {
		p := pending("a", "Hello", base)
		server := []model.Message{
			{ID: "s1", ClientMessageID: "cm-a", Content: "Hello", Sender: model.SenderAgent, Timestamp: at(time.Second)},
		}

		assert.Empty(t, Reconcile(server, []Pending{p}, now))
	})

	t.Run("matches by content when id is not echoed", func(t *testing.T) {
		p := pending("a", "Hello", base)
		server := []model.Message{
			{ID: "s1", Content: "Hello", Sender: model.SenderAgent, Timestamp: at(-2 * time.Second)},
		}

		assert.Empty(t, Reconcile(server, []Pending{p}, now))
	})

	t.Run("ignores older identical messages", func(t *testing.T) {
		p := pending("a", "Hello", base)
		server := []model.Message{
			{ID: "s0", Content: "Hello", Sender: model.SenderAgent, Timestamp: at(-time.Hour)},
		}

		assert.Len(t, Reconcile(server, []Pending{p}, now), 1)
	})

	t.Run("ignores customer messages with same text", func(t *testing.T) {
		p := pending("a", "ok", base)
		server := []model.Message{
			{ID: "s1", Content: "ok", Sender: model.SenderUser, Timestamp: at(time.Second)},
		}

		assert.Len(t, Reconcile(server, []Pending{p}, now), 1)
	})

	t.Run("one server message confirms one pending message", func(t *testing.T) {
		a := pending("a", "Hello", base)
		b := pending("b", "Hello", base.Add(time.Second))
		server := []model.Message{
			{ID: "s1", Content: "Hello", Sender: model.SenderAgent, Timestamp: at(time.Second)},
		}

		remaining := Reconcile(server, []Pending{a, b}, now)
		require.Len(t, remaining, 1)
	})
}

func TestMerge_RoundTripLeavesOneCopy(t *testing.T) {
	now := base.Add(time.Minute)
	p := pending("a", "Hello", base)
	server := []model.Message{
		{ID: "s0", Content: "Hi, I need help", Sender: model.SenderUser, Timestamp: at(-time.Minute)},
		{ID: "s1", ClientMessageID: "cm-a", Content: "Hello", Sender: model.SenderAgent, Timestamp: at(time.Second), Status: model.DeliverySent},
	}

	merged := Merge(server, []Pending{p}, now)

	count := 0
	for _, m := range merged {
		if m.Content == "Hello" && m.Sender == model.SenderAgent {
			count++
			assert.Equal(t, "s1", m.ID)
		}
	}
	assert.Equal(t, 1, count)
}
