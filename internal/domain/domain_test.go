package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordEntry_DisplayName(t *testing.T) {
	tests := []struct {
		name  string
		entry PasswordEntry
		want  string
	}{
		{"title wins", PasswordEntry{Title: "Mail", Website: "mail.example", Username: "me"}, "Mail"},
		{"website fallback", PasswordEntry{Website: "mail.example", Username: "me"}, "mail.example"},
		{"username fallback", PasswordEntry{Username: "me"}, "me"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.DisplayName())
		})
	}
}

func TestParseItemType(t *testing.T) {
	got, ok := ParseItemType(" bank_card ")
	assert.True(t, ok)
	assert.Equal(t, ItemTypeBankCard, got)

	_, ok = ParseItemType("PASSKEY")
	assert.False(t, ok)
}

func TestSecureItem_EncryptedImages(t *testing.T) {
	item := SecureItem{ImagePaths: []string{"front.enc", "preview.jpg", " back.enc ", ""}}
	assert.Equal(t, []string{"front.enc", "back.enc"}, item.EncryptedImages())
}
