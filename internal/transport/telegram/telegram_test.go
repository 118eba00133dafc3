package telegram_test

import (
	"testing"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/groupmate/internal/transport/telegram"
)

var me = &models.User{ID: 77, IsBot: true, Username: "MateBot"}

func group(text string) *models.Message {
	return &models.Message{
		ID:   10,
		From: &models.User{ID: 5, Username: "alice"},
		Chat: models.Chat{ID: -100, Type: models.ChatTypeSupergroup, Title: "friends"},
		Text: text,
	}
}

func TestFromMessage(t *testing.T) {
	t.Parallel()

	reply := group("sure")
	reply.ReplyToMessage = &models.Message{From: me}

	private := group("hi")
	private.Chat.Type = models.ChatTypePrivate

	caption := group("")
	caption.Caption = "look at this"

	botMsg := group("beep")
	botMsg.From = &models.User{ID: 9, IsBot: true}

	noName := group("hey")
	noName.From = &models.User{ID: 6, FirstName: "Bob", LastName: "Lee"}

	tests := []struct {
		name          string
		msg           *models.Message
		wantOK        bool
		wantMentioned bool
		wantPrompt    string
		wantAuthor    string
	}{
		{"plain", group("hello all"), true, false, "hello all", "alice"},
		{"mention", group("@matebot what's up"), true, true, "what's up", "alice"},
		{"reply to bot", reply, true, true, "sure", "alice"},
		{"private chat", private, true, true, "hi", "alice"},
		{"caption", caption, true, false, "look at this", "alice"},
		{"display name", noName, true, false, "hey", "Bob Lee"},
		{"bot author", botMsg, false, false, "", ""},
		{"empty", group("  "), false, false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := telegram.FromMessage(tt.msg, me)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Mentioned != tt.wantMentioned || got.Prompt != tt.wantPrompt || got.AuthorName != tt.wantAuthor {
				t.Errorf("got %+v", got)
			}
			if got.ChannelID != "-100" || got.GuildID != "-100" || got.ID != "10" {
				t.Errorf("ids = %+v", got)
			}
		})
	}
}
