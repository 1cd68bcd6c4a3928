package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/message-whisperer/agent-console/internal/model"
)

func TestNotificationSubject(t *testing.T) {
	tests := []struct {
		name       string
		businessID string
		kind       model.NotificationKind
		want       string
	}{
		{"plain", "biz-1", model.NotificationError, "console.biz-1.notify.error"},
		{"no business", "", model.NotificationSuccess, "console._.notify.success"},
		{"wildcards escaped", "a.b*c>", model.NotificationError, "console.a_b_c_.notify.error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NotificationSubject(tt.businessID, tt.kind))
		})
	}
}
