package agents

import (
	"reflect"
	"testing"
)

func TestClosestMatches(t *testing.T) {
	roster := []string{"api-designer", "test-writer", "sdk-designer", "memory-manager", "bug-fixer"}

	tests := []struct {
		name    string
		unknown string
		want    []string
	}{
		{"transposition", "api-desginer", []string{"api-designer"}},
		{"case insensitive", "Test-Writer", []string{"test-writer"}},
		{"substring", "memory", []string{"memory-manager"}},
		{"nothing close", "zzzzzz", []string{}},
		{"empty input", "", nil},
		{"shared suffix ties keep roster order", "xx-designer", []string{"api-designer", "sdk-designer"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClosestMatches(tt.unknown, roster)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ClosestMatches(%q) = %v, want %v", tt.unknown, got, tt.want)
			}
		})
	}
}

func TestClosestMatches_CapsAtThree(t *testing.T) {
	roster := []string{"agent-a", "agent-b", "agent-c", "agent-d", "agent-e"}
	got := ClosestMatches("agent-x", roster)
	want := []string{"agent-a", "agent-b", "agent-c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestClosestMatches_OrdersByDistance(t *testing.T) {
	roster := []string{"writer-two", "test-writer", "test-writter"}
	got := ClosestMatches("test-writer", roster)
	if len(got) < 2 || got[0] != "test-writer" || got[1] != "test-writter" {
		t.Errorf("got %v, want test-writer then test-writter first", got)
	}
}
