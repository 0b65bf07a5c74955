package main

import (
	"testing"

	"github.com/expr-lang/expr"
	"github.com/jpalmerr/pathstore"
)

func TestMatchesFilter(t *testing.T) {
	program, err := expr.Compile(`hasPrefix(path, "user.")`, expr.AsBool())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	tests := []struct {
		name  string
		event pathstore.Event
		want  bool
	}{
		{"matching path", pathstore.Event{Path: "user.name", Value: "Bob"}, true},
		{"non-matching path", pathstore.Event{Path: "session.token", Value: "x"}, false},
		{"snapshot always passes", pathstore.Event{Path: "", Value: map[string]any{}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := matchesFilter(program, tt.event)
			if err != nil {
				t.Fatalf("matchesFilter() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("matchesFilter(%q) = %v, want %v", tt.event.Path, got, tt.want)
			}
		})
	}
}

func TestMatchesFilter_ParentBinding(t *testing.T) {
	program, err := expr.Compile(`parent == "user"`, expr.AsBool())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	got, err := matchesFilter(program, pathstore.Event{Path: "user.name"})
	if err != nil {
		t.Fatalf("matchesFilter() error = %v", err)
	}
	if !got {
		t.Error("matchesFilter() = false, want true for parent binding")
	}

	got, err = matchesFilter(program, pathstore.Event{Path: "session.token"})
	if err != nil {
		t.Fatalf("matchesFilter() error = %v", err)
	}
	if got {
		t.Error("matchesFilter() = true, want false for other parent")
	}
}

func TestMatchesFilter_NilProgram(t *testing.T) {
	got, err := matchesFilter(nil, pathstore.Event{Path: "a.b"})
	if err != nil {
		t.Fatalf("matchesFilter() error = %v", err)
	}
	if !got {
		t.Error("matchesFilter(nil) = false, want true")
	}
}
