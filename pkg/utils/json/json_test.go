package json

import (
	"bytes"
	stdjson "encoding/json"
	"strings"
	"testing"
)

type pageRecord struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Content        string `json:"content"`
	LastEditedTime string `json:"last_edited_time"`
}

type choiceQuestion struct {
	Question string            `json:"question"`
	Options  map[string]string `json:"options"`
	Answer   string            `json:"answer"`
}

func TestMarshalRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data pageRecord
	}{
		{
			name: "ascii content",
			data: pageRecord{
				ID:             "page-1",
				Title:          "Cell Biology",
				Content:        "Mitochondria produce ATP.",
				LastEditedTime: "2025-06-01T10:00:00.000Z",
			},
		},
		{
			name: "unicode content",
			data: pageRecord{
				ID:             "page-2",
				Title:          "细胞生物学",
				Content:        "线粒体产生 ATP。",
				LastEditedTime: "2025-06-01T10:00:00.000Z",
			},
		},
		{
			name: "empty fields",
			data: pageRecord{ID: "page-3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Marshal(tt.data)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			var got pageRecord
			if err := Unmarshal(out, &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if got != tt.data {
				t.Errorf("round trip = %+v, want %+v", got, tt.data)
			}
		})
	}
}

func TestMarshalMatchesStdlibShape(t *testing.T) {
	q := choiceQuestion{
		Question: "What does the mitochondrion produce?",
		Options:  map[string]string{"A": "ATP", "B": "DNA", "C": "RNA", "D": "Glucose"},
		Answer:   "A",
	}

	out, err := Marshal(q)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	// Key sets must agree with encoding/json so artifacts stay portable.
	var viaOurs, viaStd map[string]interface{}
	if err := stdjson.Unmarshal(out, &viaOurs); err != nil {
		t.Fatalf("stdlib cannot parse our output: %v", err)
	}
	stdOut, err := stdjson.Marshal(q)
	if err != nil {
		t.Fatalf("stdlib Marshal() error = %v", err)
	}
	if err := stdjson.Unmarshal(stdOut, &viaStd); err != nil {
		t.Fatalf("stdlib Unmarshal() error = %v", err)
	}
	if len(viaOurs) != len(viaStd) {
		t.Errorf("key count = %d, want %d", len(viaOurs), len(viaStd))
	}
	for k := range viaStd {
		if _, ok := viaOurs[k]; !ok {
			t.Errorf("missing key %q", k)
		}
	}
}

func TestMarshalIndent(t *testing.T) {
	out, err := MarshalIndent([]choiceQuestion{{
		Question: "q",
		Options:  map[string]string{"A": "a", "B": "b", "C": "c", "D": "d"},
		Answer:   "B",
	}}, "", "  ")
	if err != nil {
		t.Fatalf("MarshalIndent() error = %v", err)
	}
	if !strings.Contains(string(out), "\n") {
		t.Error("expected indented output to span multiple lines")
	}
	var back []choiceQuestion
	if err := Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(back) != 1 || back[0].Answer != "B" {
		t.Errorf("round trip = %+v", back)
	}
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer

	records := []pageRecord{
		{ID: "a", Title: "A", LastEditedTime: "2025-01-01T00:00:00.000Z"},
		{ID: "b", Title: "B", LastEditedTime: "2025-01-02T00:00:00.000Z"},
	}
	enc := NewEncoder(&buf)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
	}

	dec := NewDecoder(&buf)
	for i := range records {
		var got pageRecord
		if err := dec.Decode(&got); err != nil {
			t.Fatalf("Decode() #%d error = %v", i, err)
		}
		if got != records[i] {
			t.Errorf("Decode() #%d = %+v, want %+v", i, got, records[i])
		}
	}
}

func TestUnmarshalMalformed(t *testing.T) {
	var v map[string]interface{}
	if err := Unmarshal([]byte(`{"score": `), &v); err == nil {
		t.Error("expected error for truncated JSON")
	}
	if err := Unmarshal([]byte(`not json at all`), &v); err == nil {
		t.Error("expected error for non-JSON input")
	}
}
