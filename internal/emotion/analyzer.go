// Package emotion scores the emotional tone of text from keywords,
// punctuation and emoticons. It is a heuristic, not a trained classifier.
package emotion

import (
	"math"
	"regexp"
	"strings"

	"github.com/loqalabs/voiceforge/internal/chunker"
)

// Emotion is one of the supported emotion labels.
type Emotion string

const (
	Happy   Emotion = "happy"
	Sad     Emotion = "sad"
	Angry   Emotion = "angry"
	Excited Emotion = "excited"
	Scared  Emotion = "scared"
	Normal  Emotion = "normal"
)

// Detectable lists the non-neutral emotions in tie-break order: on equal
// scores the earlier entry wins.
var Detectable = []Emotion{Happy, Sad, Angry, Excited, Scared}

const (
	keywordWeight     = 1.0
	punctuationWeight = 0.5
	emojiWeight       = 0.7

	threshold      = 0.5
	boostAbove     = 2.0
	boostFactor    = 1.2
	boostCap       = 0.98
	maxPatternHits = 3
)

// Scores holds the combined score of each detectable emotion.
type Scores map[Emotion]float64

// Result is the outcome of analysing one piece of text.
type Result struct {
	Emotion    Emotion `json:"emotion"`
	Confidence float64 `json:"confidence"`
	Scores     Scores  `json:"scores"`
}

// SentenceResult is the outcome for a single sentence.
type SentenceResult struct {
	Text       string  `json:"text"`
	Emotion    Emotion `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// Valid reports whether e names a supported emotion, normal included.
func Valid(e Emotion) bool {
	if e == Normal {
		return true
	}
	for _, d := range Detectable {
		if d == e {
			return true
		}
	}
	return false
}

var wordPattern = regexp.MustCompile(`[a-z']+`)

// Analyze returns the dominant emotion of text. Blank text is normal with
// full confidence and no scores.
func Analyze(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Emotion: Normal, Confidence: 1.0, Scores: Scores{}}
	}

	kw := keywordScores(text)
	punct := punctuationScores(text)
	emo := emojiScores(text)

	combined := make(Scores, len(Detectable))
	for _, e := range Detectable {
		combined[e] = kw[e]*keywordWeight + punct[e]*punctuationWeight + emo[e]*emojiWeight
	}

	best, maxScore, total := Normal, 0.0, 0.0
	for _, e := range Detectable {
		score := combined[e]
		total += score
		if best == Normal || score > maxScore {
			best, maxScore = e, score
		}
	}

	if maxScore < threshold {
		return Result{
			Emotion:    Normal,
			Confidence: 1.0 - (maxScore/threshold)*0.3,
			Scores:     combined,
		}
	}

	confidence := 0.5
	if total > 0 {
		confidence = maxScore / total
	}
	if maxScore > boostAbove {
		confidence = math.Min(confidence*boostFactor, boostCap)
	}
	return Result{
		Emotion:    best,
		Confidence: round2(confidence),
		Scores:     roundScores(combined),
	}
}

// AnalyzeSentences scores every sentence of text independently, in order.
func AnalyzeSentences(text string) []SentenceResult {
	sentences := chunker.Sentences(text)
	results := make([]SentenceResult, 0, len(sentences))
	for _, sentence := range sentences {
		r := Analyze(sentence)
		results = append(results, SentenceResult{
			Text:       sentence,
			Emotion:    r.Emotion,
			Confidence: r.Confidence,
		})
	}
	return results
}

// Dominant is a shorthand for the label and confidence of Analyze.
func Dominant(text string) (Emotion, float64) {
	r := Analyze(text)
	return r.Emotion, r.Confidence
}

func keywordScores(text string) Scores {
	lower := strings.ToLower(text)
	scores := make(Scores, len(Detectable))
	for _, word := range wordPattern.FindAllString(lower, -1) {
		for _, e := range Detectable {
			if w, ok := keywords[e][word]; ok {
				scores[e] += w
			}
		}
	}
	for _, e := range Detectable {
		for phrase, w := range phrases[e] {
			if strings.Contains(lower, phrase) {
				scores[e] += w
			}
		}
	}
	return scores
}

func punctuationScores(text string) Scores {
	scores := make(Scores, len(Detectable))
	for _, p := range punctuation {
		hits := len(p.re.FindAllStringIndex(text, maxPatternHits))
		if hits == 0 {
			continue
		}
		for e, w := range p.weights {
			scores[e] += w * float64(hits)
		}
	}
	return scores
}

func emojiScores(text string) Scores {
	scores := make(Scores, len(Detectable))
	for _, p := range emoji {
		if !p.re.MatchString(text) {
			continue
		}
		for e, w := range p.weights {
			scores[e] += w
		}
	}
	return scores
}

func roundScores(s Scores) Scores {
	out := make(Scores, len(s))
	for e, v := range s {
		out[e] = round2(v)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
