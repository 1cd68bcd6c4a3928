// Package model defines data structures shared by the agent console.
package model

import (
	"time"
)

// Status is the lifecycle state of a conversation.
type Status string

const (
	StatusOpen        Status = "open"
	StatusPending     Status = "pending"
	StatusHumanNeeded Status = "human_needed"
	StatusResolved    Status = "resolved"
)

// Terminal reports whether no further activity is expected on the conversation.
func (s Status) Terminal() bool {
	return s == StatusResolved
}

// Filter selects which conversations the queue shows.
type Filter string

const (
	FilterAll         Filter = "all"
	FilterPending     Filter = "pending"
	FilterHumanNeeded Filter = "human_needed"
	FilterResolved    Filter = "resolved"
)

// ParseFilter returns the filter named by s, or false if s is not a filter.
func ParseFilter(s string) (Filter, bool) {
	switch f := Filter(s); f {
	case FilterAll, FilterPending, FilterHumanNeeded, FilterResolved:
		return f, true
	case "":
		return FilterAll, true
	}
	return "", false
}

// QueryValue is the status value sent to the backend, empty for no filter.
func (f Filter) QueryValue() string {
	if f == FilterAll {
		return ""
	}
	return string(f)
}

// ExcludesResolved reports whether resolved conversations drop out of view.
func (f Filter) ExcludesResolved() bool {
	return f != FilterAll && f != FilterResolved
}

// Includes reports whether c belongs in the queue under this filter.
// Conversations paused by a human count as needing a human.
func (f Filter) Includes(c *ConversationSummary) bool {
	switch f {
	case FilterPending:
		return (c.Status == StatusPending || c.Status == StatusOpen) && c.AIPausedBy == nil
	case FilterHumanNeeded:
		if c.Status == StatusResolved {
			return false
		}
		return c.Status == StatusHumanNeeded || c.AIPausedBy != nil
	case FilterResolved:
		return c.Status == StatusResolved
	default:
		return true
	}
}

// ConversationSummary is one row in the ticket queue.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Phone        string    `json:"phone_number"`
	CustomerName string    `json:"customer_name,omitempty"`
	LastMessage  string    `json:"last_message"`
	Status       Status    `json:"status"`
	LastActivity time.Time `json:"last_activity"`
	UnreadCount  int       `json:"unread_count,omitempty"`

	AIEnabled    *bool   `json:"ai_enabled,omitempty"`
	AIPausedBy   *string `json:"ai_paused_by,omitempty"`
	AssignedTo   *string `json:"assigned_to,omitempty"`
	AssigneeName *string `json:"assignee_name,omitempty"`
}

// Clone returns a deep copy of c.
func (c *ConversationSummary) Clone() *ConversationSummary {
	out := *c
	out.AIEnabled = clonePtr(c.AIEnabled)
	out.AIPausedBy = clonePtr(c.AIPausedBy)
	out.AssignedTo = clonePtr(c.AssignedTo)
	out.AssigneeName = clonePtr(c.AssigneeName)
	return &out
}

// Opt is one optional field change in a ConversationPatch. A zero Opt leaves
// the field alone; Set with a nil Value clears it.
type Opt[T comparable] struct {
	Set   bool
	Value *T
}

// Set returns an Opt that writes v.
func Set[T comparable](v T) Opt[T] {
	return Opt[T]{Set: true, Value: &v}
}

// Clear returns an Opt that writes nil.
func Clear[T comparable]() Opt[T] {
	return Opt[T]{Set: true}
}

func (o Opt[T]) apply(field **T) Opt[T] {
	if !o.Set {
		return Opt[T]{}
	}
	prev := Opt[T]{Set: true, Value: clonePtr(*field)}
	*field = clonePtr(o.Value)
	return prev
}

func (o Opt[T]) holds(field *T) bool {
	return equalPtr(o.Value, field)
}

// ConversationPatch is a partial update of a ConversationSummary.
type ConversationPatch struct {
	Status       Opt[Status]
	AssignedTo   Opt[string]
	AssigneeName Opt[string]
	AIEnabled    Opt[bool]
	AIPausedBy   Opt[string]
}

// Empty reports whether the patch changes nothing.
func (p ConversationPatch) Empty() bool {
	return !p.Status.Set && !p.AssignedTo.Set && !p.AssigneeName.Set && !p.AIEnabled.Set && !p.AIPausedBy.Set
}

// Apply writes the patch into c and returns the patch that restores the
// previous values of exactly the fields it changed.
func (c *ConversationSummary) Apply(p ConversationPatch) ConversationPatch {
	var inverse ConversationPatch
	if p.Status.Set && p.Status.Value != nil {
		prev := c.Status
		c.Status = *p.Status.Value
		inverse.Status = Set(prev)
	}
	inverse.AssignedTo = p.AssignedTo.apply(&c.AssignedTo)
	inverse.AssigneeName = p.AssigneeName.apply(&c.AssigneeName)
	inverse.AIEnabled = p.AIEnabled.apply(&c.AIEnabled)
	inverse.AIPausedBy = p.AIPausedBy.apply(&c.AIPausedBy)
	return inverse
}

// Revert restores the fields in inverse, but only those that still hold the
// value written by applied. Fields changed since by another writer are kept.
func (c *ConversationSummary) Revert(applied, inverse ConversationPatch) {
	if inverse.Status.Set && applied.Status.Value != nil && c.Status == *applied.Status.Value {
		c.Status = *inverse.Status.Value
	}
	if inverse.AssignedTo.Set && applied.AssignedTo.holds(c.AssignedTo) {
		c.AssignedTo = clonePtr(inverse.AssignedTo.Value)
	}
	if inverse.AssigneeName.Set && applied.AssigneeName.holds(c.AssigneeName) {
		c.AssigneeName = clonePtr(inverse.AssigneeName.Value)
	}
	if inverse.AIEnabled.Set && applied.AIEnabled.holds(c.AIEnabled) {
		c.AIEnabled = clonePtr(inverse.AIEnabled.Value)
	}
	if inverse.AIPausedBy.Set && applied.AIPausedBy.holds(c.AIPausedBy) {
		c.AIPausedBy = clonePtr(inverse.AIPausedBy.Value)
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Agent is a human operator who can be assigned conversations.
type Agent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListConversationsResponse is one page of the conversation queue.
type ListConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
	NextCursor    *string               `json:"next_cursor"`
}

// ListAgentsResponse is the response for listing agents.
type ListAgentsResponse struct {
	Agents []Agent `json:"agents"`
}

// AssignRequest is the body of an assign call.
type AssignRequest struct {
	AgentID string `json:"agent_id"`
}

// ToggleAIRequest is the body of an AI toggle call.
type ToggleAIRequest struct {
	Enabled bool `json:"enabled"`
}
