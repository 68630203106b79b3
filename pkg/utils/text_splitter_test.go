package utils

import (
	"strings"
	"testing"
)

func TestSplitText(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		chunkSize  int
		overlap    int
		wantChunks int
	}{
		{
			name:       "short text is a single chunk",
			text:       "hello world",
			chunkSize:  100,
			overlap:    10,
			wantChunks: 1,
		},
		{
			name:       "exact boundary",
			text:       strings.Repeat("a", 100),
			chunkSize:  100,
			overlap:    0,
			wantChunks: 1,
		},
		{
			name:       "splits with overlap",
			text:       strings.Repeat("a", 250),
			chunkSize:  100,
			overlap:    20,
			wantChunks: 3, // steps of 80: 0-100, 80-180, 160-250
		},
		{
			name:       "overlap larger than chunk falls back to chunk step",
			text:       strings.Repeat("a", 300),
			chunkSize:  100,
			overlap:    150,
			wantChunks: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := SplitText(tt.text, tt.chunkSize, tt.overlap)
			if len(chunks) != tt.wantChunks {
				t.Errorf("got %d chunks, want %d", len(chunks), tt.wantChunks)
			}
			for i, c := range chunks {
				if len(c) > tt.chunkSize {
					t.Errorf("chunk %d has length %d, exceeds size %d", i, len(c), tt.chunkSize)
				}
			}
		})
	}
}

func TestSplitTextPreservesContent(t *testing.T) {
	text := strings.Repeat("abcdefghij", 50)
	chunks := SplitText(text, 120, 0)

	var rebuilt strings.Builder
	for _, c := range chunks {
		rebuilt.WriteString(c)
	}
	if rebuilt.String() != text {
		t.Error("concatenated zero-overlap chunks should reproduce the input")
	}
}
