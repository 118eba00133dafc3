package transport_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edgard/groupmate/internal/transport"
)

func TestChunk(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"short", "hello", 10, []string{"hello"}},
		{"exact", "abcd", 4, []string{"abcd"}},
		{"hard split", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"newline", "abc\ndefgh", 6, []string{"abc\n", "defgh"}},
		{"runes", "你好世界你好", 4, []string{"你好世界", "你好"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := transport.Chunk(tt.text, tt.limit)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Chunk = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderEmbed(t *testing.T) {
	t.Parallel()
	got := transport.RenderEmbed(transport.Embed{
		Title:       "Title",
		Description: "desc",
		Fields:      []transport.EmbedField{{Name: "F", Value: "v"}},
		Footer:      "foot",
	})
	want := "Title\ndesc\n\nF\nv\n\nfoot"
	if got != want {
		t.Errorf("RenderEmbed = %q, want %q", got, want)
	}
}

type typingConn struct {
	transport.Conn
	n atomic.Int32
}

func (c *typingConn) Typing(context.Context, string) error {
	c.n.Add(1)
	return nil
}

func TestKeepTyping(t *testing.T) {
	t.Parallel()
	c := &typingConn{}
	stop := transport.KeepTyping(context.Background(), c, "c1", 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	stop()
	n := c.n.Load()
	if n < 2 {
		t.Errorf("typing sent %d times, want at least 2", n)
	}
	time.Sleep(20 * time.Millisecond)
	if c.n.Load() != n {
		t.Error("typing continued after stop")
	}
}
