package emotion

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAnalyzeEmpty(t *testing.T) {
	for _, text := range []string{"", "   ", "\n"} {
		r := Analyze(text)
		if r.Emotion != Normal || r.Confidence != 1.0 {
			t.Fatalf("%q: expected normal/1.0, got %s/%v", text, r.Emotion, r.Confidence)
		}
		if len(r.Scores) != 0 {
			t.Fatalf("%q: expected no scores, got %v", text, r.Scores)
		}
	}
}

func TestAnalyzeHappyAndExcited(t *testing.T) {
	r := Analyze("I am so happy and excited! 😊")
	if r.Scores[Happy] <= 0 || r.Scores[Excited] <= 0 {
		t.Fatalf("expected happy and excited signal, got %v", r.Scores)
	}
	// happy: 1.2 + 0.5*0.1 + 0.7*0.4 = 1.53; excited: 1.3 + 0.5*0.15 = 1.375
	if r.Emotion != Happy {
		t.Fatalf("expected happy, got %s (%v)", r.Emotion, r.Scores)
	}
	if !almostEqual(r.Scores[Happy], 1.53) {
		t.Fatalf("unexpected happy score %v", r.Scores[Happy])
	}
	if r.Confidence <= 0 || r.Confidence > 1 {
		t.Fatalf("confidence out of range: %v", r.Confidence)
	}
	if !almostEqual(r.Confidence, 0.53) {
		t.Fatalf("expected confidence 0.53, got %v", r.Confidence)
	}
}

func TestAnalyzeNeutralText(t *testing.T) {
	r := Analyze("The meeting is at 3pm.")
	if r.Emotion != Normal {
		t.Fatalf("expected normal, got %s", r.Emotion)
	}
	if r.Confidence != 1.0 {
		t.Fatalf("expected full confidence with no signal, got %v", r.Confidence)
	}
	if len(r.Scores) != len(Detectable) {
		t.Fatalf("expected a score per emotion, got %v", r.Scores)
	}
}

func TestAnalyzeWeakSignalLowersNormalConfidence(t *testing.T) {
	// a single "!" gives excited 0.5*0.15 = 0.075
	r := Analyze("See you tomorrow!")
	if r.Emotion != Normal {
		t.Fatalf("expected normal, got %s", r.Emotion)
	}
	want := 1.0 - (0.075/0.5)*0.3
	if !almostEqual(r.Confidence, want) {
		t.Fatalf("expected confidence %v, got %v", want, r.Confidence)
	}
	if r.Confidence < 0.7 || r.Confidence > 1.0 {
		t.Fatalf("normal confidence must stay within [0.7, 1], got %v", r.Confidence)
	}
}

func TestAnalyzeNormalKeepsRawValues(t *testing.T) {
	r := Analyze("Hi!")
	if r.Emotion != Normal {
		t.Fatalf("expected normal, got %s", r.Emotion)
	}
	if !almostEqual(r.Confidence, 0.955) {
		t.Fatalf("expected confidence 0.955, got %v", r.Confidence)
	}
	if !almostEqual(r.Scores[Excited], 0.075) || !almostEqual(r.Scores[Happy], 0.05) {
		t.Fatalf("expected unrounded scores, got %v", r.Scores)
	}

	r = Analyze("ok D:")
	if r.Emotion != Normal || !almostEqual(r.Confidence, 0.874) {
		t.Fatalf("expected normal/0.874, got %s/%v", r.Emotion, r.Confidence)
	}
}

func TestAnalyzePhraseMatching(t *testing.T) {
	r := Analyze("I can't wait for the weekend")
	if r.Emotion != Excited {
		t.Fatalf("expected excited from phrase, got %s (%v)", r.Emotion, r.Scores)
	}
	if !almostEqual(r.Scores[Excited], 1.2) {
		t.Fatalf("expected phrase weight 1.2, got %v", r.Scores[Excited])
	}
}

func TestAnalyzePunctuationCapped(t *testing.T) {
	few := Analyze("what?? really?? no?? ")
	many := Analyze("what?? really?? no?? why?? how?? ")
	if few.Scores[Scared] != many.Scores[Scared] {
		t.Fatalf("punctuation hits must cap at 3: %v vs %v", few.Scores[Scared], many.Scores[Scared])
	}
	if !almostEqual(few.Scores[Scared], 0.3) {
		t.Fatalf("expected scared 0.5*0.2*3 = 0.3, got %v", few.Scores[Scared])
	}
}

func TestAnalyzeEmojiCountedOnce(t *testing.T) {
	one := Analyze("ok 😢")
	three := Analyze("ok 😢😢😭")
	if one.Scores[Sad] != three.Scores[Sad] {
		t.Fatalf("emoji presence must not be counted: %v vs %v", one.Scores[Sad], three.Scores[Sad])
	}
}

func TestAnalyzeBoostsStrongSignal(t *testing.T) {
	r := Analyze("I hate this, I am furious and angry.")
	if r.Emotion != Angry {
		t.Fatalf("expected angry, got %s", r.Emotion)
	}
	// only angry scores, so max/total = 1 and the boost caps at 0.98
	if !almostEqual(r.Confidence, 0.98) {
		t.Fatalf("expected boosted confidence 0.98, got %v", r.Confidence)
	}
}

func TestAnalyzeTieBreaksInFixedOrder(t *testing.T) {
	// sad 1.2 and angry 1.2
	r := Analyze("sad angry")
	if r.Emotion != Sad {
		t.Fatalf("expected first maximum (sad) to win, got %s", r.Emotion)
	}
	if !almostEqual(r.Confidence, 0.5) {
		t.Fatalf("expected confidence 0.5, got %v", r.Confidence)
	}
}

func TestAnalyzeSentences(t *testing.T) {
	results := AnalyzeSentences("I am happy. I am sad.")
	if len(results) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(results))
	}
	if results[0].Text != "I am happy." || results[0].Emotion != Happy {
		t.Fatalf("unexpected first sentence: %+v", results[0])
	}
	if results[1].Text != "I am sad." || results[1].Emotion != Sad {
		t.Fatalf("unexpected second sentence: %+v", results[1])
	}
	if got := AnalyzeSentences("   "); len(got) != 0 {
		t.Fatalf("expected no sentences for blank input, got %+v", got)
	}
}

func TestDominant(t *testing.T) {
	emo, conf := Dominant("I'm terrified of the dark")
	if emo != Scared || conf <= 0 {
		t.Fatalf("expected scared, got %s/%v", emo, conf)
	}
}

func TestValid(t *testing.T) {
	for _, e := range []Emotion{Happy, Sad, Angry, Excited, Scared, Normal} {
		if !Valid(e) {
			t.Fatalf("%s should be valid", e)
		}
	}
	if Valid("bored") {
		t.Fatal("bored should not be valid")
	}
}
