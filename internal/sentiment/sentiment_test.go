package sentiment_test

import (
	"reflect"
	"testing"

	"github.com/edgard/groupmate/internal/sentiment"
)

func TestLabelFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		compound float64
		want     sentiment.Label
	}{
		{0.31, sentiment.Positive},
		{0.3, sentiment.Neutral},
		{0, sentiment.Neutral},
		{-0.3, sentiment.Neutral},
		{-0.31, sentiment.Negative},
		{1, sentiment.Positive},
		{-1, sentiment.Negative},
	}
	for _, tt := range tests {
		if got := sentiment.LabelFor(tt.compound); got != tt.want {
			t.Errorf("LabelFor(%v) = %q, want %q", tt.compound, got, tt.want)
		}
	}
}

func TestAnalyzeLabels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want sentiment.Label
	}{
		{name: "clearly positive", text: "I love this, it is great!", want: sentiment.Positive},
		{name: "clearly negative", text: "this is terrible and I hate it", want: sentiment.Negative},
		{name: "neutral statement", text: "the meeting is at noon", want: sentiment.Neutral},
		{name: "negated positive", text: "this is not good at all", want: sentiment.Negative},
		{name: "empty", text: "", want: sentiment.Neutral},
		{name: "chinese positive", text: "今天真开心，太喜欢了", want: sentiment.Positive},
		{name: "chinese negative", text: "好失望，真讨厌", want: sentiment.Negative},
		{name: "chinese negated", text: "我不开心", want: sentiment.Negative},
		{name: "but shifts weight", text: "the food was good but the service was horrible", want: sentiment.Negative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := sentiment.Analyze(tt.text)
			if got.Label != tt.want {
				t.Errorf("Analyze(%q).Label = %q (compound %.3f), want %q", tt.text, got.Label, got.Compound, tt.want)
			}
			if got.Compound < -1 || got.Compound > 1 {
				t.Errorf("compound %v out of range", got.Compound)
			}
		})
	}
}

func TestEmphasisIncreasesIntensity(t *testing.T) {
	t.Parallel()

	plain := sentiment.Compound("this is good")
	loud := sentiment.Compound("this is good!!!")
	boosted := sentiment.Compound("this is very good")
	caps := sentiment.Compound("this is GOOD")

	for name, v := range map[string]float64{"exclamation": loud, "booster": boosted, "caps": caps} {
		if v <= plain {
			t.Errorf("%s: expected %v > %v", name, v, plain)
		}
	}
}

func TestTopics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "only long tokens", text: "hello there friend", want: []string{"hello", "there", "friend"}},
		{name: "lower cased", text: "Python AND Golang are fun", want: []string{"python", "golang"}},
		{name: "exactly three runes dropped", text: "the cat sat", want: nil},
		{name: "punctuation splits", text: "music, movies; games!", want: []string{"music", "movies", "games"}},
		{name: "contractions kept", text: "doesn't matter", want: []string{"doesn't", "matter"}},
		{name: "cjk counted by runes", text: "人工智能 游戏", want: []string{"人工智能"}},
		{name: "cjk punctuation splits", text: "机器学习，很有意思", want: []string{"机器学习", "很有意思"}},
		{name: "duplicates kept", text: "rust rust rust", want: []string{"rust", "rust", "rust"}},
		{name: "empty", text: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := sentiment.Topics(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Topics(%q) = %#v, want %#v", tt.text, got, tt.want)
			}
		})
	}
}

func TestChineseOverlay(t *testing.T) {
	t.Parallel()

	english := sentiment.Compound("I love it")
	mixed := sentiment.Compound("I love it 开心")
	if mixed <= english {
		t.Errorf("mixed %v should exceed english-only %v", mixed, english)
	}

	against := sentiment.Compound("I love it 但是好失望")
	if against >= english {
		t.Errorf("negative chinese words should pull %v below %v", against, english)
	}

	plain := sentiment.Compound("开心")
	loud := sentiment.Compound("开心！！！")
	if loud <= plain {
		t.Errorf("exclamation: expected %v > %v", loud, plain)
	}

	for _, text := range []string{"开心开心开心开心开心开心 amazing wonderful best", "讨厌讨厌讨厌 terrible awful"} {
		if c := sentiment.Compound(text); c < -1 || c > 1 {
			t.Errorf("Compound(%q) = %v out of range", text, c)
		}
	}
}
