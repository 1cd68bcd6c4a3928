package thread

import (
	"sort"
	"time"

	"github.com/message-whisperer/agent-console/internal/model"
)

// ReconcileSkew is how far before the local send time a server copy of an
// optimistic message may be stamped and still count as the same message.
const ReconcileSkew = 5 * time.Second

// Pending is an optimistic message waiting for its server copy.
type Pending struct {
	Message    model.Message
	InsertedAt time.Time
}

// Reconcile drops every pending message that already has a server copy and
// returns the ones still waiting. A server message matches by client message
// id when it carries one, otherwise by agent sender and identical content
// stamped no earlier than the local send minus ReconcileSkew. Each server
// message confirms at most one pending message.
func Reconcile(server []model.Message, pending []Pending, now time.Time) []Pending {
	if len(pending) == 0 {
		return nil
	}

	used := make([]bool, len(server))
	remaining := make([]Pending, 0, len(pending))

	for _, p := range pending {
		if idx := matchByClientID(server, used, p); idx >= 0 {
			used[idx] = true
			continue
		}
		if idx := matchByContent(server, used, p, now); idx >= 0 {
			used[idx] = true
			continue
		}
		remaining = append(remaining, p)
	}
	return remaining
}

func matchByClientID(server []model.Message, used []bool, p Pending) int {
	id := p.Message.ClientMessageID
	if id == "" {
		return -1
	}
	for i := range server {
		if !used[i] && server[i].ClientMessageID == id {
			return i
		}
	}
	return -1
}

func matchByContent(server []model.Message, used []bool, p Pending, now time.Time) int {
	earliest := p.InsertedAt.Add(-ReconcileSkew)
	for i := range server {
		m := &server[i]
		if used[i] || m.Sender != model.SenderAgent || m.Content != p.Message.Content {
			continue
		}
		if m.ClientMessageID != "" && m.ClientMessageID != p.Message.ClientMessageID {
			continue
		}
		if m.EffectiveTime(now).Before(earliest) {
			continue
		}
		return i
	}
	return -1
}

// Merge returns the thread as presented: server messages plus the pending
// messages without a server copy, in ascending effective time. Messages
// without any timestamp sort at now. Ties keep server-before-local order.
func Merge(server []model.Message, pending []Pending, now time.Time) []model.Message {
	remaining := Reconcile(server, pending, now)

	type keyed struct {
		msg model.Message
		at  time.Time
	}
	all := make([]keyed, 0, len(server)+len(remaining))
	for _, m := range server {
		all = append(all, keyed{msg: m, at: m.EffectiveTime(now)})
	}
	for _, p := range remaining {
		all = append(all, keyed{msg: p.Message, at: p.Message.EffectiveTime(p.InsertedAt)})
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].at.Before(all[j].at)
	})

	out := make([]model.Message, len(all))
	for i, k := range all {
		out[i] = k.msg
	}
	return out
}
