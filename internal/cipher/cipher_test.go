package cipher

import "testing"

func TestTransform(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		key      int
		expected string
	}{
		{
			name:     "basic shift",
			text:     "ABC",
			key:      3,
			expected: "DEF",
		},
		{
			name:     "wraps around alphabet",
			text:     "XYZ",
			key:      3,
			expected: "ABC",
		},
		{
			name:     "lowercase input is uppercased",
			text:     "cesar",
			key:      1,
			expected: "DFTBS",
		},
		{
			name:     "zero key only uppercases",
			text:     "Secret Word",
			key:      0,
			expected: "SECRET WORD",
		},
		{
			name:     "negative key shifts backwards",
			text:     "DEF",
			key:      -3,
			expected: "ABC",
		},
		{
			name:     "key larger than alphabet is reduced",
			text:     "ABC",
			key:      29,
			expected: "DEF",
		},
		{
			name:     "non-letters pass through",
			text:     "A-B 1C!",
			key:      1,
			expected: "B-C 1D!",
		},
		{
			name:     "empty string",
			text:     "",
			key:      5,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Transform(tt.text, tt.key)
			if result != tt.expected {
				t.Errorf("Transform(%q, %d) = %q, want %q", tt.text, tt.key, result, tt.expected)
			}
		})
	}
}

func TestTransformRoundTrip(t *testing.T) {
	keys := []int{0, 1, 13, 25, 26, 27, -1, -13, 100}
	texts := []string{"ESCAPE ROOM", "THE KEY IS 42", "CESAR"}

	for _, key := range keys {
		for _, text := range texts {
			encoded := Transform(text, key)
			decoded := Transform(encoded, Invert(key))
			if decoded != text {
				t.Errorf("round trip with key %d: got %q, want %q", key, decoded, text)
			}
		}
	}
}
