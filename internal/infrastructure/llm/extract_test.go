package llm

import (
	"encoding/json"
	"testing"

	"VideoCurator/internal/domain"
)

func TestExtractJSONFromFencedBlock(t *testing.T) {
	t.Parallel()

	reply := "Sure! Here is the classification you asked for:\n" +
		"```json\n" +
		`{"instructional": true, "quality": 8.5, "technique": "armbar", "position": "closed guard", "difficulty": "blue"}` +
		"\n```\nLet me know if you need anything else."

	raw := ExtractJSON(reply)
	if raw == nil {
		t.Fatalf("expected extracted object, got nil")
	}

	var c domain.Classification
	if err := json.Unmarshal(raw, &c); err != nil {
		t.Fatalf("unmarshal extracted object: %v", err)
	}
	if !c.Instructional {
		t.Fatalf("expected instructional=true")
	}
	if c.Quality != 8.5 {
		t.Fatalf("expected quality 8.5, got %v", c.Quality)
	}
	if c.Technique != "armbar" {
		t.Fatalf("unexpected technique: %s", c.Technique)
	}
}

func TestExtractJSONIgnoresBracesInsideStrings(t *testing.T) {
	t.Parallel()

	reply := `{"note": "uses } and { inside", "ok": true} trailing chatter`

	raw := ExtractJSON(reply)
	if raw == nil {
		t.Fatalf("expected extracted object, got nil")
	}

	var decoded struct {
		Note string `json:"note"`
		OK   bool   `json:"ok"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal extracted object: %v", err)
	}
	if !decoded.OK {
		t.Fatalf("expected ok=true")
	}
	if decoded.Note != "uses } and { inside" {
		t.Fatalf("unexpected note: %s", decoded.Note)
	}
}

func TestExtractJSONHandlesEscapedQuotes(t *testing.T) {
	t.Parallel()

	reply := `prefix {"title": "the \"best\" pass"} suffix`

	raw := ExtractJSON(reply)
	if string(raw) != `{"title": "the \"best\" pass"}` {
		t.Fatalf("unexpected extraction: %s", raw)
	}
}

func TestExtractJSONReturnsNilWithoutObject(t *testing.T) {
	t.Parallel()

	if raw := ExtractJSON("no json here, sorry"); raw != nil {
		t.Fatalf("expected nil, got %s", raw)
	}
	if raw := ExtractJSON(`{"unbalanced": true`); raw != nil {
		t.Fatalf("expected nil for unbalanced object, got %s", raw)
	}
}
