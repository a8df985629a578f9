// internal/moderation/parse_test.go
package moderation

import "testing"

func TestParseVerdict_ExplicitFormats(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"VERDICT: CONVINCED\nBecause the debater conceded.", "CONVINCED"},
		{"verdict: continue\nStill arguing.", "CONTINUE"},
		{"Some preamble. VERDICT:   OFF-TOPIC", "OFF-TOPIC"},
		{"VERDICT: ON-TOPIC, clearly.", "ON-TOPIC"},
	}

	for _, tc := range cases {
		got, ok := parseVerdict(tc.input)
		if !ok {
			t.Errorf("parseVerdict(%q) found no verdict", tc.input)
			continue
		}
		if got != tc.want {
			t.Errorf("parseVerdict(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseVerdict_KeywordFallback(t *testing.T) {
	got, ok := parseVerdict("In my judgement the debater has been convinced by round three.")
	if !ok || got != "CONVINCED" {
		t.Errorf("Expected CONVINCED via keyword fallback, got %q ok=%v", got, ok)
	}

	got, ok = parseVerdict("The conversation is completely off-topic at this point.")
	if !ok || got != "OFF-TOPIC" {
		t.Errorf("Expected OFF-TOPIC via keyword fallback, got %q ok=%v", got, ok)
	}
}

func TestParseVerdict_NoVerdict(t *testing.T) {
	if got, ok := parseVerdict("An interesting exchange of views."); ok {
		t.Errorf("Expected no verdict, got %q", got)
	}
}

func TestRationaleAfterVerdict(t *testing.T) {
	got := rationaleAfterVerdict("VERDICT: CONVINCED. The debater conceded the main point. More text here.")
	if got != "The debater conceded the main point" {
		t.Errorf("Unexpected rationale: %q", got)
	}

	got = rationaleAfterVerdict("No structured verdict, just commentary.\nSecond line.")
	if got != "No structured verdict, just commentary" {
		t.Errorf("Unexpected fallback rationale: %q", got)
	}
}

func TestExtractKeywords_FiltersStopwordsAndDuplicates(t *testing.T) {
	got := extractKeywords("The remote work is the future of remote work")
	want := []string{"remote", "work", "future"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keyword %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestOverlapRatio(t *testing.T) {
	reference := extractKeywords("remote work increases productivity")
	if got := overlapRatio(reference, "remote work is great for productivity and focus"); got < 0.7 {
		t.Errorf("Expected high overlap, got %f", got)
	}
	if got := overlapRatio(reference, "the pasta at lunch was excellent"); got != 0 {
		t.Errorf("Expected zero overlap, got %f", got)
	}
	if got := overlapRatio(nil, "anything"); got != 1 {
		t.Errorf("Expected 1 for empty reference, got %f", got)
	}
}

func TestJaccard(t *testing.T) {
	if got := jaccard("remote work boosts focus", "remote work boosts focus"); got != 1 {
		t.Errorf("Expected 1 for identical texts, got %f", got)
	}
	if got := jaccard("remote work boosts focus", "cats enjoy sleeping daily"); got != 0 {
		t.Errorf("Expected 0 for disjoint texts, got %f", got)
	}
	if got := jaccard("", ""); got != 1 {
		t.Errorf("Expected 1 for two empty texts, got %f", got)
	}
}
