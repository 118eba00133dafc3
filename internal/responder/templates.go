package responder

import "github.com/edgard/groupmate/internal/memory"

var greetings = []string{
	"你好啊！", "嗨！", "大家好！", "有人在吗？", "今天过得怎么样？", "打扰一下~", "我回来了！",
	"有什么有趣的事情发生吗？",
}

var reactions = []string{"👋", "❤️", "👍", "😊", "🎉", "🤔", "😂", "🙌", "✨", "🔥"}

var topicStarters = []string{
	"我最近在想，%s是不是很有意思？",
	"大家对%s有什么看法？",
	"说到%s，我有个问题想问大家...",
	"我发现%s真的很吸引人，你们觉得呢？",
	"有人了解%s吗？我想了解更多。",
}

var questions = []string{
	"你们觉得呢？", "有人有不同意见吗？", "大家有什么想法？", "这个话题你们感兴趣吗？", "有人能分享一下经验吗？",
}

type knowledge struct {
	keyword string
	answer  string
}

// knowledgeBase is matched in order; the first keyword found wins.
var knowledgeBase = []knowledge{
	{"discord", "Discord是一个专为社区设计的免费语音、视频和文字聊天应用程序。"},
	{"python", "Python是一种解释型、高级、通用型编程语言，由吉多·范罗苏姆创造于1989年。"},
	{"游戏", "游戏是一种通过电子设备进行的娱乐活动，可以是单人或多人参与的。"},
	{"电影", "电影是一种视觉艺术形式，通过连续的图像创造幻觉，讲述故事或表达思想。"},
	{"音乐", "音乐是一种艺术形式，通过有组织的声音和静默来创造美的形式。"},
	{"编程", "编程是编写计算机程序的过程，这些程序是计算机执行特定任务的指令集。"},
	{"人工智能", "人工智能是计算机科学的一个分支，旨在创造能够模拟人类智能的系统。"},
	{"机器学习", "机器学习是人工智能的一个子领域，专注于开发能够从数据中学习的算法。"},
}

func knowledgeKeys() []string {
	keys := make([]string, len(knowledgeBase))
	for i, k := range knowledgeBase {
		keys[i] = k.keyword
	}
	return keys
}

// recencyWords mark questions about current events.
var recencyWords = []string{
	"最新", "最近", "新闻", "现在", "今天", "昨天", "本周", "本月", "当前",
	"latest", "today", "news", "this week", "recent",
}

var (
	positiveComments = []string{"我完全同意你的观点！", "说得太好了！", "这个想法真棒！", "我也是这么想的！", "你的观点很有见地！"}
	negativeComments = []string{"听起来有点困难啊...", "希望情况能变得更好。", "这确实是个问题，有什么我能帮忙的吗？", "我理解你的感受，要不要聊聊别的？", "也许事情会好转的。"}
	neutralComments  = []string{"有意思的观点。", "我明白你的意思了。", "这让我想到了...", "谢谢分享！", "继续说下去？"}
)

// personalizeTemplates weave a topic into a base reply.
var personalizeTemplates = []func(base, topic string) string{
	func(base, topic string) string { return base + " 对了，你不是对" + topic + "很感兴趣吗？" },
	func(base, topic string) string { return base + " 话说回来，最近" + topic + "有什么新进展吗？" },
	func(base, topic string) string { return "作为一个喜欢" + topic + "的人，你觉得" + base },
}

var moodTexts = map[memory.Mood]string{
	memory.MoodHappy:   "我现在心情很好！😊",
	memory.MoodNeutral: "我现在心情平静，一切都挺好的。😌",
	memory.MoodExcited: "我现在超级兴奋！有什么好玩的事情吗？🤩",
	memory.MoodCurious: "我对一切都充满好奇心！有什么新鲜事？🧐",
	memory.MoodTired:   "说实话，我有点累了...但还是很乐意聊天！😴",
	memory.MoodPlayful: "我现在心情很调皮，想找点乐子！😜",
}

// Prompts.
const (
	promptKnowledge = "基于以下信息回答问题。信息: %s，问题: %s"

	promptSearchAnswer = "根据以下搜索结果和上下文信息，回答用户问题。问题: %s\n\n搜索结果:\n%s"
	systemSearchAnswer = "你是一个友好的Discord群友，正在参与群聊。你需要根据提供的搜索结果回答问题，回答要简洁自然，像普通群友一样说话。"
	searchFallback     = "这是我找到的一些资料：\n\n%s"

	systemDirectAnswer = "你是一个友好的Discord群友，正在参与群聊。回答要简洁自然，像普通群友一样说话。不要使用太正式或机器人式的语言。如果不确定答案，就坦率地说不知道，可以适当加入表情符号增加亲和力。"
	answerFallback     = "这是个好问题！我不太确定答案，但我们可以一起讨论一下。"

	promptComment = "对以下消息提供一个简短、自然的回复，像普通朋友一样说话：\n%s"
	systemComment = "你是一个友好的Discord群友。你的回复应该简短（不超过30个字），自然，像普通朋友一样说话。不要显得太正式或机器人式。"

	promptPersonalize = "请基于以下基础回复和用户兴趣创建一个个性化回复。基础回复：%s，用户兴趣：%s"
	systemPersonalize = "你是一个友好的Discord群友，正在与熟悉的朋友聊天。请保持回复简短自然，类似于普通用户的聊天方式，不要显得太正式。可以适当提及用户的兴趣爱好。"

	promptFollowup = "请根据上述对话生成一个自然的跟进回复"
	systemFollowup = "你是Discord群组中的一个普通成员。基于上下文提供简短、自然的跟进，像普通群友一样说话。不要使用太正式或机器人式的语言。"

	systemMention = "你是Discord群组中的一个友好成员。你应该提供简短、自然的回复，就像普通群友一样说话。不要使用太正式或机器人式的语言。如果被问到问题，尽量提供有帮助的回答，但保持对话风格轻松自然。"

	promptEnhanceProactive = "请基于这个话题启动语'%s'创建一个更自然、有深度的话题启动消息，要简洁自然，像普通群友发起的话题一样。"
	promptEnhanceCommand   = "基于'%s'创建一个更自然有趣的话题启动，像真实群友一样。保持简短自然。"

	promptMood = "你当前的心情是%s，请像一个普通的Discord群友一样，用一两句话描述你现在的心情状态。要简短自然，加入适合的表情符号。"

	promptSearchSummary = "请根据以下搜索结果，总结对'%s'的回答。以自然对话方式回复，不要重复'根据搜索结果'之类的话。\n\n%s"
)
