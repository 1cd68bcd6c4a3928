package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/message-whisperer/agent-console/internal/model"
	"github.com/message-whisperer/agent-console/pkg/logger"
	"github.com/message-whisperer/agent-console/pkg/metrics"
)

// DefaultHistory is how many trailing messages a draft is based on.
const DefaultHistory = 20

// ErrEmptyDraft is returned when the model produced no text.
var ErrEmptyDraft = errors.New("model returned an empty draft")

// ErrNoMessages is returned when there is nothing to reply to.
var ErrNoMessages = errors.New("conversation has no messages")

const draftSystemPrompt = `You are helping a human customer support agent answer a WhatsApp conversation.
Write the next reply the agent should send to the customer.
Reply in the customer's language, be brief and friendly, and do not invent order details, prices or policies.
Return only the message text, without quotes or a greeting line addressed to the agent.`

// Drafter suggests replies for the agent. Drafts are never sent on their own.
type Drafter struct {
	client      Client
	model       string
	history     int
	temperature float64
	logger      *logger.Logger
}

// DrafterOption configures a Drafter.
type DrafterOption func(*Drafter)

// WithModel selects the model name passed to the provider.
func WithModel(name string) DrafterOption {
	return func(d *Drafter) { d.model = name }
}

// WithHistory limits how many trailing messages are sent to the model.
func WithHistory(n int) DrafterOption {
	return func(d *Drafter) {
		if n > 0 {
			d.history = n
		}
	}
}

// NewDrafter creates a drafter on top of client.
func NewDrafter(client Client, log *logger.Logger, opts ...DrafterOption) *Drafter {
	if log == nil {
		log = logger.NewNop()
	}
	d := &Drafter{
		client:      client,
		history:     DefaultHistory,
		temperature: 0.3,
		logger:      log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Draft returns a suggested next agent reply for the given thread.
func (d *Drafter) Draft(ctx context.Context, messages []model.Message) (string, error) {
	if len(messages) == 0 {
		return "", ErrNoMessages
	}
	if len(messages) > d.history {
		messages = messages[len(messages)-d.history:]
	}

	req := &CompletionRequest{
		Model:       d.model,
		System:      draftSystemPrompt,
		Messages:    []ChatMessage{{Role: RoleUser, Content: Transcript(messages)}},
		Temperature: d.temperature,
	}

	start := time.Now()
	resp, err := d.client.Complete(ctx, req)
	duration := time.Since(start).Seconds()
	if err != nil {
		metrics.RecordDraft(d.client.Name(), d.model, "error", duration, 0, 0)
		d.logger.Warn("draft completion failed", zap.String("provider", d.client.Name()), zap.Error(err))
		return "", fmt.Errorf("drafting reply: %w", err)
	}
	metrics.RecordDraft(d.client.Name(), resp.Model, "ok", duration, resp.TokensIn, resp.TokensOut)

	draft := strings.TrimSpace(resp.Content)
	if draft == "" {
		return "", ErrEmptyDraft
	}
	return draft, nil
}

// Transcript renders messages as one line per turn, labelled by sender.
func Transcript(messages []model.Message) string {
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" && m.Media != nil {
			content = "[attachment: " + m.Media.MimeType + "]"
		}
		if content == "" {
			continue
		}
		b.WriteString(senderLabel(m.Sender))
		b.WriteString(": ")
		b.WriteString(content)
		b.WriteByte('\n')
	}
	b.WriteString("\nWrite the agent's next reply.")
	return b.String()
}

func senderLabel(s model.Sender) string {
	switch s {
	case model.SenderUser:
		return "Customer"
	case model.SenderBot:
		return "Assistant bot"
	default:
		return "Agent"
	}
}
