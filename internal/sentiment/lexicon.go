package sentiment

// Chinese valence scores on the VADER scale of roughly [-4, 4].
var chinese = map[string]float64{
	"喜欢": 2.0, "爱": 2.5, "开心": 2.5, "高兴": 2.4, "快乐": 2.6,
	"好玩": 2.0, "有趣": 1.8, "厉害": 2.2, "棒": 2.4, "优秀": 2.5,
	"漂亮": 2.3, "谢谢": 1.9, "感谢": 2.0, "哈哈": 2.0, "不错": 1.9,
	"赞": 2.2, "满意": 2.0, "成功": 2.5, "期待": 1.6, "舒服": 1.8,
	"讨厌": -2.5, "难过": -2.2, "伤心": -2.4, "生气": -2.3, "糟糕": -2.3,
	"失望": -2.3, "无聊": -1.5, "烦": -1.8, "累": -1.6, "痛苦": -2.8,
	"害怕": -2.0, "担心": -1.4, "失败": -2.3, "垃圾": -2.6, "难受": -2.1,
	"倒霉": -2.0, "可惜": -1.4, "恶心": -2.5, "讨嫌": -2.0, "崩溃": -2.6,
}

// Chinese negators immediately preceding a polarity word.
var chineseNegators = []rune{'不', '没', '别', '非'}
