package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/message-whisperer/agent-console/internal/model"
	"github.com/message-whisperer/agent-console/internal/store"
	"github.com/message-whisperer/agent-console/pkg/metrics"
)

// Refresh re-fetches the first page of the queue for the active filter.
func (c *Console) Refresh(ctx context.Context) error {
	return c.fetch(ctx, c.conversations.Filter())
}

// SetFilter switches the queue filter and re-fetches. A different filter
// clears the selection and closes the open thread.
func (c *Console) SetFilter(ctx context.Context, filter model.Filter) error {
	return c.fetch(ctx, filter)
}

func (c *Console) fetch(ctx context.Context, filter model.Filter) error {
	err := c.conversations.FetchInitial(ctx, filter)
	c.syncThread()
	if err != nil {
		c.fail(ctx, model.OperationFetch, "", "Failed to load conversations", err)
		return err
	}
	return nil
}

// LoadMore appends the next page. It reports false when there was nothing
// to load or a load was already running.
func (c *Console) LoadMore(ctx context.Context) (bool, error) {
	loaded, err := c.conversations.LoadMore(ctx)
	if err != nil {
		c.fail(ctx, model.OperationFetch, "", "Failed to load more conversations", err)
	}
	return loaded, err
}

// SwitchTenant makes businessID the active business. The queue, the open
// thread and cached media of the previous business are dropped before the
// new queue is fetched.
func (c *Console) SwitchTenant(ctx context.Context, businessID string) error {
	if businessID == "" {
		return ErrNoBusiness
	}
	if businessID == c.backend.BusinessID() {
		return c.Refresh(ctx)
	}

	c.logger.Info("switching business",
		zap.String("from", c.backend.BusinessID()),
		zap.String("to", businessID),
	)
	c.backend.SetBusinessID(businessID)
	c.conversations.Reset()
	c.thread.Close()
	if c.media != nil {
		if err := c.media.Clear(ctx); err != nil {
			c.logger.Warn("failed to clear media cache", zap.Error(err))
		}
	}

	c.agentsMu.Lock()
	c.agents = make(map[string]string)
	c.agentsMu.Unlock()

	return c.Refresh(ctx)
}

// Select opens conversationID. An empty id closes the open thread.
func (c *Console) Select(conversationID string) error {
	if conversationID == "" {
		c.conversations.ClearSelection()
		c.thread.Close()
		return nil
	}
	if err := c.conversations.Select(conversationID); err != nil {
		return fmt.Errorf("selecting %s: %w", conversationID, err)
	}
	c.syncThread()
	return nil
}

// syncThread makes the open thread follow the selection and the selected
// conversation's status.
func (c *Console) syncThread() {
	selected := c.conversations.Selected()
	if selected == "" {
		if c.thread.ConversationID() != "" {
			c.thread.Close()
		}
		return
	}

	summary, ok := c.conversations.Get(selected)
	if !ok {
		c.conversations.ClearSelection()
		c.thread.Close()
		return
	}
	if c.thread.ConversationID() != selected {
		c.thread.Open(c.ctx, selected, summary.Status)
		return
	}
	c.thread.SetStatus(c.ctx, selected, summary.Status)
}

// Agents lists the agents of the active business.
func (c *Console) Agents(ctx context.Context) ([]model.Agent, error) {
	agents, err := c.backend.ListAgents(ctx)
	if err != nil {
		return nil, err
	}

	c.agentsMu.Lock()
	for _, a := range agents {
		c.agents[a.ID] = a.Name
	}
	c.agentsMu.Unlock()

	return agents, nil
}

func (c *Console) lookupAgentName(agentID string) (string, bool) {
	if agentID == c.agentID && c.agentName != "" {
		return c.agentName, true
	}
	c.agentsMu.RLock()
	defer c.agentsMu.RUnlock()
	name, ok := c.agents[agentID]
	return name, ok
}

// Assign hands conversationID to agentID; an empty agentID means the
// session's own agent.
func (c *Console) Assign(ctx context.Context, conversationID, agentID string) error {
	if agentID == "" {
		agentID = c.agentID
	}

	patch := model.ConversationPatch{AssignedTo: model.Set(agentID)}
	if name, ok := c.lookupAgentName(agentID); ok {
		patch.AssigneeName = model.Set(name)
	} else {
		patch.AssigneeName = model.Clear[string]()
	}

	return c.patch(ctx, model.OperationAssign, conversationID, patch,
		func(ctx context.Context) error { return c.backend.Assign(ctx, conversationID, agentID) },
		"Conversation assigned", "Failed to assign conversation",
	)
}

// ToggleAI turns automated replies on or off. Turning them off records the
// session's agent as the one who paused the bot.
func (c *Console) ToggleAI(ctx context.Context, conversationID string, enabled bool) error {
	patch := model.ConversationPatch{AIEnabled: model.Set(enabled)}
	success := "AI replies enabled"
	if enabled {
		patch.AIPausedBy = model.Clear[string]()
	} else {
		patch.AIPausedBy = model.Set(c.agentID)
		success = "AI replies paused"
	}

	return c.patch(ctx, model.OperationToggleAI, conversationID, patch,
		func(ctx context.Context) error { return c.backend.SetAI(ctx, conversationID, enabled) },
		success, "Failed to update AI handling",
	)
}

// patch runs one optimistic summary mutation: apply, call, then confirm or
// restore the fields it wrote.
func (c *Console) patch(ctx context.Context, op model.Operation, conversationID string, patch model.ConversationPatch, call func(context.Context) error, success, failure string) error {
	inverse, err := c.conversations.ApplyOptimisticPatch(conversationID, patch)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, conversationID, err)
	}

	err = call(ctx)
	metrics.RecordMutation(string(op), err)
	if err != nil {
		c.conversations.Revert(conversationID, patch, inverse)
		metrics.RollbacksTotal.WithLabelValues(string(op)).Inc()
		c.fail(ctx, op, conversationID, failure, err)
		return err
	}

	c.succeed(ctx, op, conversationID, success)
	return nil
}

// Resolve closes conversationID. Under a filter that hides resolved
// conversations the entry leaves the queue at once and the following entry
// is opened; otherwise it is marked resolved in place. Pending optimistic
// messages of the conversation are dropped either way.
func (c *Console) Resolve(ctx context.Context, conversationID string) error {
	before, ok := c.conversations.Get(conversationID)
	if !ok {
		return fmt.Errorf("%s %s: %w", model.OperationResolve, conversationID, store.ErrNotFound)
	}

	var (
		removal *store.Removal
		applied model.ConversationPatch
		inverse model.ConversationPatch
		err     error
	)
	if c.conversations.Filter().ExcludesResolved() {
		removal, err = c.conversations.RemoveAndSelectNext(conversationID)
	} else {
		applied = model.ConversationPatch{Status: model.Set(model.StatusResolved)}
		inverse, err = c.conversations.ApplyOptimisticPatch(conversationID, applied)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", model.OperationResolve, conversationID, err)
	}
	c.thread.ClearOptimistic(conversationID)
	c.thread.SetStatus(c.ctx, conversationID, model.StatusResolved)
	c.syncThread()

	err = c.backend.Resolve(ctx, conversationID)
	metrics.RecordMutation(string(model.OperationResolve), err)
	if err != nil {
		if removal != nil {
			c.conversations.Restore(removal)
		} else {
			c.conversations.Revert(conversationID, applied, inverse)
		}
		c.thread.SetStatus(c.ctx, conversationID, before.Status)
		c.syncThread()
		metrics.RollbacksTotal.WithLabelValues(string(model.OperationResolve)).Inc()
		c.fail(ctx, model.OperationResolve, conversationID, "Failed to resolve conversation", err)
		return err
	}

	c.succeed(ctx, model.OperationResolve, conversationID, "Conversation resolved")
	return nil
}
