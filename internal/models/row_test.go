package models

import (
	"encoding/json"
	"testing"
)

func TestOrderedRowMarshalKeepsOrder(t *testing.T) {
	row := OrderedRow{
		Keys:   []string{"speed", "lanes", "a\"b"},
		Values: []interface{}{"55", 3.0, nil},
	}

	raw, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	want := `{"speed":"55","lanes":3,"a\"b":null}`
	if string(raw) != want {
		t.Errorf("Expected %s, got %s", want, raw)
	}
}

func TestOrderedRowGet(t *testing.T) {
	row := OrderedRow{Keys: []string{"speed"}, Values: []interface{}{"55"}}

	if v, ok := row.Get("speed"); !ok || v != "55" {
		t.Errorf("Expected 55, got %v (%v)", v, ok)
	}
	if _, ok := row.Get("lanes"); ok {
		t.Error("Expected lanes to be absent")
	}
}

func TestModelArtifactName(t *testing.T) {
	tests := map[string]string{
		"/models/model_1.keras": "model_1.keras",
		"model_2.keras":         "model_2.keras",
		"/a/b/c/traffic.h5":     "traffic.h5",
	}
	for path, want := range tests {
		m := &Model{FilePath: path}
		if got := m.ArtifactName(); got != want {
			t.Errorf("ArtifactName(%q) = %q, want %q", path, got, want)
		}
	}
}
