package services

import (
	"testing"
)

func TestCompactEvents(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"empty", "", "", false},
		{"null", "null", "", false},
		{"array compacted", `[ {"type": "X"} ]`, `[{"type":"X"}]`, false},
		{"object", `{"a": 1}`, `{"a":1}`, false},
		{"serialized array kept as string", `"[{\"type\":\"X\"}]"`, `"[{\"type\":\"X\"}]"`, false},
		{"plain string kept", `"hello"`, `"hello"`, false},
		{"number kept", `42`, `42`, false},
		{"non-ascii untouched", `["é<b>"]`, `["é<b>"]`, false},
		{"invalid", `[{"type":`, "", true},
		{"bare word", `hello`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := compactEvents([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("compactEvents(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if string(got) != tt.expected {
				t.Errorf("compactEvents(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestReviewEvents(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"null", "null", "", false},
		{"array compacted", `[ {"type": "Y"} ]`, `[{"type":"Y"}]`, false},
		{"serialized array unwrapped", `"[ {\"type\": \"Y\"} ]"`, `[{"type":"Y"}]`, false},
		{"serialized object unwrapped", `"{\"a\":1}"`, `{"a":1}`, false},
		{"plain string kept", `"hello"`, `"hello"`, false},
		{"broken serialized array kept", `"[1,"`, `"[1,"`, false},
		{"invalid", `[1,`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reviewEvents([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("reviewEvents(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if string(got) != tt.expected {
				t.Errorf("reviewEvents(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		skip, limit         int
		wantSkip, wantLimit int
	}{
		{0, 0, 0, 100},
		{-5, 10, 0, 10},
		{20, 5000, 20, 1000},
		{3, 1000, 3, 1000},
	}

	for _, tt := range tests {
		skip, limit := normalizePage(tt.skip, tt.limit)
		if skip != tt.wantSkip || limit != tt.wantLimit {
			t.Errorf("normalizePage(%d, %d) = (%d, %d), expected (%d, %d)",
				tt.skip, tt.limit, skip, limit, tt.wantSkip, tt.wantLimit)
		}
	}
}

func TestContainsPattern(t *testing.T) {
	tests := map[string]string{
		"plain": "%plain%",
		"a_b":   "%a!_b%",
		"50%":   "%50!%%",
		"hey!":  "%hey!!%",
	}
	for in, expected := range tests {
		if got := containsPattern(in); got != expected {
			t.Errorf("containsPattern(%q) = %q, expected %q", in, got, expected)
		}
	}
}
