package engine

import (
	"strings"
	"testing"
)

func TestParseCritique_ApprovedJSON(t *testing.T) {
	inputs := []string{
		`{"critic_suggestions": "APPROVED"}`,
		`{"critic_suggestions": "approved"}`,
		`{"critic_suggestions": "  Approved  "}`,
		"```json\n{\"critic_suggestions\": \"APPROVED\"}\n```",
		"```\n{\"critic_suggestions\": \"APPROVED\"}\n```",
	}
	for _, in := range inputs {
		v := ParseCritique(in)
		if !v.Approved {
			t.Errorf("ParseCritique(%q).Approved = false, want true", in)
		}
		if v.RevisedDescription != "" {
			t.Errorf("ParseCritique(%q) carried a revised description", in)
		}
	}
}

func TestParseCritique_NeedsRevisionJSON(t *testing.T) {
	v := ParseCritique(`{"critic_suggestions": "needs clearer arrows", "revised_description": "add directional arrows between each node"}`)
	if v.Approved {
		t.Fatal("verdict should not be approved")
	}
	if v.Summary != "needs clearer arrows" {
		t.Errorf("Summary = %q", v.Summary)
	}
	if v.RevisedDescription != "add directional arrows between each node" {
		t.Errorf("RevisedDescription = %q", v.RevisedDescription)
	}
	if !v.HasRevision() {
		t.Error("HasRevision() = false, want true")
	}
}

func TestParseCritique_EmptyOrSentinelRevision(t *testing.T) {
	inputs := []string{
		`{"critic_suggestions": "labels too small", "revised_description": ""}`,
		`{"critic_suggestions": "labels too small", "revised_description": "No changes needed"}`,
		`{"critic_suggestions": "labels too small"}`,
	}
	for _, in := range inputs {
		v := ParseCritique(in)
		if v.Approved {
			t.Errorf("ParseCritique(%q) approved, want needs-revision", in)
		}
		if v.RevisedDescription != "" {
			t.Errorf("ParseCritique(%q).RevisedDescription = %q, want absent", in, v.RevisedDescription)
		}
		if v.HasRevision() {
			t.Errorf("ParseCritique(%q).HasRevision() = true, want false", in)
		}
	}
}

func TestParseCritique_TextFallbackApproved(t *testing.T) {
	inputs := []string{
		"APPROVED",
		"approved - looks great",
		"  Approved. Nothing to change.",
	}
	for _, in := range inputs {
		v := ParseCritique(in)
		if !v.Approved {
			t.Errorf("ParseCritique(%q).Approved = false, want true", in)
		}
	}
}

func TestParseCritique_TextFallbackNeedsRevision(t *testing.T) {
	raw := "The arrows point the wrong way and stage three is unlabeled."
	v := ParseCritique(raw)
	if v.Approved {
		t.Fatal("verdict should not be approved")
	}
	if v.Summary != raw {
		t.Errorf("Summary = %q, want raw text", v.Summary)
	}
	if v.RevisedDescription != raw {
		t.Errorf("RevisedDescription = %q, want raw text", v.RevisedDescription)
	}
}

func TestParseCritique_LongFallbackSummaryIsTruncated(t *testing.T) {
	raw := strings.Repeat("x", 1000)
	v := ParseCritique(raw)
	if len(v.Summary) != summaryPreviewLen {
		t.Errorf("Summary length = %d, want %d", len(v.Summary), summaryPreviewLen)
	}
	if v.RevisedDescription != raw {
		t.Error("RevisedDescription should carry the full raw text")
	}
}

func TestParseCritique_NeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"```",
		"``````",
		"```json",
		"{",
		`{"critic_suggestions": 5}`,
		`{"critic_suggestions": null, "revised_description": ["a"]}`,
		"\x00\x01\x02",
		"[1, 2, 3]",
	}
	for _, in := range inputs {
		v := ParseCritique(in)
		if v.Approved && v.Summary == "" && v.RevisedDescription == "" && in != "" {
			// Any verdict is legal; this just exercises the inputs.
			t.Logf("input %q produced empty verdict", in)
		}
	}
}

func TestParseCritique_WrongFieldTypesFallBackToText(t *testing.T) {
	raw := `{"critic_suggestions": 42}`
	v := ParseCritique(raw)
	if v.Approved {
		t.Fatal("verdict should not be approved")
	}
	if v.RevisedDescription != raw {
		t.Errorf("RevisedDescription = %q, want raw text", v.RevisedDescription)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"no fences here", "no fences here"},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"{\"a\": 1}", `{"a": 1}`},
	}
	for _, tt := range tests {
		if got := stripCodeFence(tt.in); got != tt.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
