// Package cipher implements the rotation cipher used to obfuscate puzzle
// answers before they are sent to the companion display.
package cipher

const alphabetSize = 26

// Transform applies a character-wise rotation over A-Z to text. The input is
// uppercased first; anything outside A-Z passes through unchanged. The key may
// be any integer, it is reduced modulo the alphabet size, so negative and
// oversized keys are legal.
func Transform(text string, key int) string {
	shift := key % alphabetSize
	if shift < 0 {
		shift += alphabetSize
	}

	out := make([]rune, 0, len(text))
	for _, r := range text {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		if r >= 'A' && r <= 'Z' {
			r = 'A' + (r-'A'+rune(shift))%alphabetSize
		}
		out = append(out, r)
	}
	return string(out)
}

// Invert returns the key that reverses a Transform with the given key.
func Invert(key int) int {
	shift := key % alphabetSize
	if shift < 0 {
		shift += alphabetSize
	}
	return alphabetSize - shift
}
