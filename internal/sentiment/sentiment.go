// Package sentiment turns raw message text into a coarse sentiment label and
// a set of candidate topic tokens.
//
// English text is scored with govader. A small Chinese lexicon with
// negators is layered on top, since VADER only knows English words. Topic
// extraction is a heuristic: every lower-cased word token longer than three
// characters.
package sentiment

import (
	"math"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/jonreiter/govader"
)

// Label is a coarse sentiment class.
type Label string

const (
	Positive Label = "positive"
	Neutral  Label = "neutral"
	Negative Label = "negative"
)

// Thresholds on the compound score.
const (
	PositiveThreshold = 0.3
	NegativeThreshold = -0.3
)

// MinTopicRunes is the rune count a token must exceed to count as a topic.
const MinTopicRunes = 3

const (
	negScalar    = -0.74
	alpha        = 15.0
	exclaimIncr  = 0.292
	maxExclaims  = 4
	questionIncr = 0.18
	maxCompound  = 0.9999
)

// analyzer loads the VADER lexicon once.
var analyzer = sync.OnceValue(govader.NewSentimentIntensityAnalyzer)

// Analysis is the result of Analyze.
type Analysis struct {
	Label    Label
	Compound float64
	Topics   []string
}

// Analyze scores text and extracts topic tokens.
func Analyze(text string) Analysis {
	c := Compound(text)
	return Analysis{Label: LabelFor(c), Compound: c, Topics: Topics(text)}
}

// LabelFor maps a compound score to a Label.
func LabelFor(compound float64) Label {
	switch {
	case compound > PositiveThreshold:
		return Positive
	case compound < NegativeThreshold:
		return Negative
	default:
		return Neutral
	}
}

// Compound returns the normalised polarity of text in [-1, 1]. English is
// scored by VADER; Chinese polarity words found in the text are added to
// VADER's raw sum before it is normalised again.
func Compound(text string) float64 {
	en := analyzer().PolarityScores(text).Compound
	zh := chineseValence(text)
	if zh == 0 {
		return en
	}

	sum := denormalize(en) + zh
	if en == 0 {
		// VADER only applies punctuation emphasis when it found a word.
		if zh > 0 {
			sum += punctuationEmphasis(text)
		} else {
			sum -= punctuationEmphasis(text)
		}
	}
	return normalize(sum)
}

func chineseValence(text string) float64 {
	total := 0.0
	for word, v := range chinese {
		idx := 0
		for {
			j := strings.Index(text[idx:], word)
			if j < 0 {
				break
			}
			pos := idx + j
			val := v
			if prev, _ := utf8.DecodeLastRuneInString(text[:pos]); isChineseNegator(prev) {
				val *= negScalar
			}
			total += val
			idx = pos + len(word)
		}
	}
	return total
}

func isChineseNegator(r rune) bool {
	for _, n := range chineseNegators {
		if r == n {
			return true
		}
	}
	return false
}

func punctuationEmphasis(text string) float64 {
	exclaims := strings.Count(text, "!") + strings.Count(text, "！")
	if exclaims > maxExclaims {
		exclaims = maxExclaims
	}
	emphasis := float64(exclaims) * exclaimIncr

	questions := strings.Count(text, "?") + strings.Count(text, "？")
	switch {
	case questions > 3:
		emphasis += 0.96
	case questions > 1:
		emphasis += float64(questions) * questionIncr
	}
	return emphasis
}

func normalize(score float64) float64 {
	n := score / math.Sqrt(score*score+alpha)
	return math.Max(-1, math.Min(1, n))
}

// denormalize inverts normalize, recovering VADER's raw valence sum.
func denormalize(compound float64) float64 {
	c := math.Max(-maxCompound, math.Min(maxCompound, compound))
	return c * math.Sqrt(alpha/(1-c*c))
}

// Topics returns the lower-cased word tokens of text longer than three
// runes, in order of appearance. Duplicates are kept.
func Topics(text string) []string {
	var topics []string
	for _, tok := range Tokenize(strings.ToLower(text)) {
		if utf8.RuneCountInString(tok) > MinTopicRunes {
			topics = append(topics, tok)
		}
	}
	return topics
}

// Tokenize splits text on word boundaries. A token is a maximal run of
// letters, digits, marks and underscores; an apostrophe or hyphen is kept
// only between two word runes.
func Tokenize(text string) []string {
	var (
		tokens []string
		cur    []rune
	)
	runes := []rune(text)
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, string(cur))
			cur = cur[:0]
		}
	}
	for i, r := range runes {
		switch {
		case isWordRune(r):
			cur = append(cur, r)
		case (r == '\'' || r == '-') && len(cur) > 0 && i+1 < len(runes) && isWordRune(runes[i+1]):
			cur = append(cur, r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_'
}
