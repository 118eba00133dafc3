package pipeline

import (
	"fmt"
	"strings"

	"github.com/edgard/groupmate/internal/memory"
	"github.com/edgard/groupmate/internal/transport"
)

const (
	colorBlue  = 0x3498db
	colorGreen = 0x2ecc71
)

// HelpEmbed describes the bot and its commands for prefix.
func HelpEmbed(prefix string) transport.Embed {
	cmd := func(name, desc string) string { return fmt.Sprintf("`%s%s` - %s", prefix, name, desc) }
	return transport.Embed{
		Title:       "虚拟群友机器人帮助",
		Description: "我是一个模拟真实群友行为的机器人，以下是我的一些功能：",
		Color:       colorBlue,
		Fields: []transport.EmbedField{
			{Name: "自然交流", Value: "我会自动回复消息、提出话题、参与讨论，就像普通群友一样"},
			{Name: "搜索能力", Value: "如果你问我问题，我会尝试搜索网络找到答案"},
			{Name: "智能对话", Value: "我可以理解上下文，记住群友信息，提供个性化回复"},
			{Name: "命令", Value: strings.Join([]string{
				cmd("help", "显示此帮助信息"),
				cmd("topic", "我会提出一个新话题"),
				cmd("mood", "查看我当前的心情"),
				cmd("stats", "显示群组统计信息"),
				cmd("ask [问题]", "向我咨询任何问题"),
				cmd("search [关键词]", "搜索特定信息"),
			}, "\n")},
		},
		Footer: "@提及我或直接发消息，我都会尝试回复！",
	}
}

// StatsEmbed renders the group statistics. Empty rankings are left out.
func StatsEmbed(st memory.Stats) transport.Embed {
	e := transport.Embed{
		Title:       "群组统计信息",
		Description: "以下是我收集的一些群组数据：",
		Color:       colorGreen,
	}
	if len(st.TopTopics) > 0 {
		lines := make([]string, len(st.TopTopics))
		for i, t := range st.TopTopics {
			lines[i] = "• " + t
		}
		e.Fields = append(e.Fields, transport.EmbedField{Name: "热门话题", Value: strings.Join(lines, "\n")})
	}
	if len(st.TopUsers) > 0 {
		lines := make([]string, len(st.TopUsers))
		for i, u := range st.TopUsers {
			lines[i] = fmt.Sprintf("• %s (%d条消息)", u.Username, u.Interactions)
		}
		e.Fields = append(e.Fields, transport.EmbedField{Name: "活跃用户", Value: strings.Join(lines, "\n")})
	}
	e.Fields = append(e.Fields, transport.EmbedField{
		Name:  "总体统计",
		Value: fmt.Sprintf("• 记录用户数: %d\n• 总消息数: %d", st.TotalUsers, st.TotalMessages),
	})
	return e
}
