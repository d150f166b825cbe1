package emotion

import (
	"regexp"
	"strings"
)

type weights map[Emotion]float64

type pattern struct {
	re      *regexp.Regexp
	weights weights
}

// keywords maps each emotion to the words and short phrases that signal it.
// Keys containing a space are matched as substrings of the lowercased text.
var keywords = map[Emotion]map[string]float64{
	Happy: {
		"love": 1.0, "loved": 1.0, "loves": 1.0,
		"happy": 1.2, "happiness": 1.2,
		"great": 0.8, "amazing": 1.0, "wonderful": 1.0,
		"joy": 1.0, "joyful": 1.0, "delighted": 1.0,
		"pleased": 0.8, "glad": 0.8, "thankful": 0.7,
		"grateful": 0.8, "blessed": 0.8,
		"smile": 0.6, "smiling": 0.6,
		"laugh": 0.7, "laughing": 0.7,
		"cheerful": 0.9, "bright": 0.5,
		"beautiful": 0.6, "lovely": 0.7,
		"perfect": 0.8, "excellent": 0.8,
		"congratulations": 0.9, "congrats": 0.9,
		"celebrate": 0.8, "celebration": 0.8,
		"thank": 0.6, "thanks": 0.6,
	},
	Sad: {
		"sad": 1.2, "sadness": 1.2,
		"sorry": 0.9, "apologize": 0.7,
		"miss": 0.7, "missing": 0.7, "missed": 0.7,
		"cry": 1.0, "crying": 1.0, "cried": 1.0,
		"tear": 0.8, "tears": 0.8,
		"unfortunate": 0.9, "unfortunately": 0.8,
		"loss": 1.0, "lost": 0.8, "lose": 0.7,
		"regret": 0.9, "regretful": 0.9,
		"depressed": 1.2, "depression": 1.2,
		"heartbroken": 1.2, "heartbreak": 1.2,
		"lonely": 1.0, "alone": 0.6,
		"grief": 1.2, "grieve": 1.1, "grieving": 1.1,
		"mourn": 1.1, "mourning": 1.1,
		"disappointed": 0.9, "disappointment": 0.9,
		"unhappy": 1.0, "miserable": 1.1,
		"painful": 0.8, "pain": 0.6,
		"goodbye": 0.7, "farewell": 0.8,
	},
	Angry: {
		"angry": 1.2, "anger": 1.2,
		"hate": 1.2, "hated": 1.2, "hates": 1.2,
		"furious": 1.3, "fury": 1.2,
		"annoyed": 0.9, "annoying": 0.8,
		"terrible": 0.9, "horrible": 0.9,
		"worst": 1.0, "bad": 0.5,
		"frustrated": 1.0, "frustrating": 0.9, "frustration": 1.0,
		"mad": 0.9,
		"outrage": 1.2, "outraged": 1.2, "outrageous": 1.1,
		"disgusted": 1.0, "disgusting": 1.0,
		"stupid": 0.8, "idiot": 0.9,
		"damn": 0.8, "hell": 0.6,
		"ridiculous": 0.8, "absurd": 0.7,
		"unacceptable": 1.0, "intolerable": 1.0,
	},
	Excited: {
		"excited": 1.3, "exciting": 1.2, "excitement": 1.2,
		"wow": 1.0, "whoa": 0.9,
		"incredible": 1.0, "unbelievable": 0.9,
		"awesome": 1.0, "fantastic": 1.0,
		"can't wait": 1.2, "cannot wait": 1.2,
		"thrilled": 1.2, "thrilling": 1.1,
		"eager": 0.9, "eagerly": 0.9,
		"anticipate": 0.8, "anticipation": 0.8,
		"pumped": 1.0, "hyped": 1.0,
		"stoked": 1.0,
		"omg": 0.9, "oh my god": 1.0,
		"yes!": 0.8, "yay": 0.9, "woohoo": 1.0,
		"finally": 0.7,
	},
	Scared: {
		"scared": 1.2, "scary": 1.0,
		"afraid": 1.2, "fear": 1.1, "fearful": 1.1,
		"danger": 1.0, "dangerous": 0.9,
		"worried": 0.9, "worry": 0.8, "worrying": 0.8,
		"nervous": 0.9, "anxious": 1.0, "anxiety": 1.0,
		"terrified": 1.3, "terrifying": 1.2, "terror": 1.2,
		"horror": 1.1, "horrified": 1.2, "horrifying": 1.1,
		"frightened": 1.2, "frightening": 1.1,
		"panic": 1.1, "panicking": 1.1,
		"creepy": 0.8, "creep": 0.7,
		"nightmare": 1.0,
		"threat": 0.8, "threatening": 0.9,
		"helpless": 0.9, "desperate": 0.8,
	},
}

// punctuation patterns are counted, up to maxPatternHits occurrences each.
var punctuation = []pattern{
	{regexp.MustCompile(`!{2,}`), weights{Excited: 0.3, Angry: 0.2, Happy: 0.1}},
	{regexp.MustCompile(`!`), weights{Excited: 0.15, Happy: 0.1}},
	{regexp.MustCompile(`\?{2,}`), weights{Scared: 0.2, Angry: 0.15}},
	{regexp.MustCompile(`\.{3,}`), weights{Sad: 0.15, Scared: 0.1}},
	{regexp.MustCompile(`[A-Z]{3,}`), weights{Angry: 0.2, Excited: 0.2}},
}

// emoji patterns contribute once when present.
var emoji = []pattern{
	{regexp.MustCompile(`[:;]-?\)`), weights{Happy: 0.3}},
	{regexp.MustCompile(`[:;]-?D`), weights{Happy: 0.4, Excited: 0.2}},
	{regexp.MustCompile(`[:;]-?\(`), weights{Sad: 0.4}},
	{regexp.MustCompile(`>:-?\(`), weights{Angry: 0.4}},
	{regexp.MustCompile(`D:`), weights{Scared: 0.3, Sad: 0.2}},
	{regexp.MustCompile(`😊|😃|😄|😁|🙂`), weights{Happy: 0.4}},
	{regexp.MustCompile(`😢|😭|😞|😔`), weights{Sad: 0.4}},
	{regexp.MustCompile(`😠|😡|🤬`), weights{Angry: 0.4}},
	{regexp.MustCompile(`😱|😨|😰`), weights{Scared: 0.4}},
	{regexp.MustCompile(`🎉|🔥|🚀|✨`), weights{Excited: 0.3}},
}

// phrases holds the multi-word keys of every emotion, resolved once.
var phrases = func() map[Emotion]map[string]float64 {
	out := make(map[Emotion]map[string]float64, len(keywords))
	for emo, table := range keywords {
		for key, weight := range table {
			if !strings.Contains(key, " ") {
				continue
			}
			if out[emo] == nil {
				out[emo] = make(map[string]float64)
			}
			out[emo][key] = weight
		}
	}
	return out
}()
