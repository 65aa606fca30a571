package config

import (
	"testing"
)

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"single segment", "joined", "joined"},
		{"trailing slash", "joiner/", "joiner"},
		{"leading slash", "/joiner", "joiner"},
		{"both slashes", "/joiner/shards/", "joiner/shards"},
		{"double slash middle", "joiner//shards", "joiner/shards"},
		{"multiple slashes", "joiner///shards///", "joiner/shards"},
		{"only slashes", "///", ""},
		{"backslashes", "joiner\\shards", "joiner/shards"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePrefix(tt.input)
			if got != tt.expected {
				t.Errorf("NormalizePrefix(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeKeyPrefix(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"", ""},
		{"kinesis-output/", "kinesis-output/"},
		{"/kinesis-output/", "kinesis-output/"},
		{"kinesis-output", "kinesis-output"},
		{"data//kinesis-output//", "data/kinesis-output/"},
		{"/", ""},
	}
	for _, tt := range tests {
		if got := NormalizeKeyPrefix(tt.input); got != tt.want {
			t.Errorf("NormalizeKeyPrefix(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
