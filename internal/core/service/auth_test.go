package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"vipsscaler/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

type mockTextSender struct {
	callCount   int
	sendReplies []string
	sendError   error
}

func (m *mockTextSender) SendChatAction(_ context.Context, _ int64, _ domain.Action) {}

func (m *mockTextSender) NotifyAndReturnError(_ context.Context, err error, _ *domain.Message) error {
	return err
}

func (m *mockTextSender) SendMessageReply(_ context.Context, _ *domain.Message, text string) (int, error) {
	m.callCount++
	m.sendReplies = append(m.sendReplies, text)
	if m.sendError != nil {
		return 0, m.sendError
	}
	return len(text), nil
}

func TestChatAuthorizer(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []int64
		chatID      int64
		sendErr     error
		wantAllowed bool
	}{
		{
			name:        "allowlisted chat",
			allowed:     []int64{1, 2, 3},
			chatID:      2,
			wantAllowed: true,
		},
		{
			name:        "unknown chat is told who to ask",
			allowed:     []int64{1, 2, 3},
			chatID:      42,
			wantAllowed: false,
		},
		{
			name:        "empty allowlist denies everyone",
			allowed:     nil,
			chatID:      1,
			wantAllowed: false,
		},
		{
			name:        "send failure still denies",
			allowed:     []int64{1},
			chatID:      7,
			sendErr:     errors.New("mock error"),
			wantAllowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &mockTextSender{sendError: tt.sendErr}
			auth := NewChatAuthorizer(tt.allowed, "admin", sender)

			got := auth.IsAuthorized(t.Context(), &domain.Message{ChatID: tt.chatID})
			assert.Equal(t, tt.wantAllowed, got)

			if tt.wantAllowed {
				assert.Equal(t, 0, sender.callCount)
				return
			}

			assert.Equal(t, 1, sender.callCount)
			assert.Equal(t, fmt.Sprintf(forbidden, "admin", tt.chatID), sender.sendReplies[0])
		})
	}
}
