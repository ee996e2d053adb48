// Package screen encodes and decodes the logical screen type carried in a
// document's footer. The footer is the only channel communicating screen
// identity between independent invocations, so its grammar is byte-stable.
package screen

import "strings"

// spacer is the en quad used to pad footers into a fixed-width layout.
const spacer = " "

// targetWidth is the rendered footer width the padding aims for.
const targetWidth = 60

// narrowRunes render at roughly half width in the client's footer font. Half
// of their count is added back to the spacer so both halves stay aligned.
const narrowRunes = "ijtlfI "

// Encode packs a screen type and a trailing label into a footer string.
// The label is the acting user's display name when known, otherwise
// "v"+version. The two halves are separated by at least two en quads so
// Decode can split them back apart.
func Encode(screenType, version, label string) string {
	left := "@" + screenType
	right := label
	if right == "" {
		if version == "" {
			version = "dev"
		}
		right = "v" + version
	}

	pad := 2
	if len(left) <= 58 {
		if n := targetWidth - len(left) - len(right); n > pad {
			pad = n
		}
	}
	pad += narrowCount(left+right) / 2
	return left + strings.Repeat(spacer, pad) + right
}

// Decode extracts the screen type from a footer string. Absent or malformed
// footers report ok=false, never an error: unknown state is inert.
func Decode(footer string) (screenType string, ok bool) {
	if !strings.HasPrefix(footer, "@") {
		return "", false
	}
	head, _, _ := strings.Cut(footer, spacer+spacer)
	head = strings.TrimSpace(strings.Replace(head, "@", "", 1))
	if head == "" {
		return "", false
	}
	return head, true
}

func narrowCount(s string) int {
	n := 0
	for _, r := range s {
		if strings.ContainsRune(narrowRunes, r) {
			n++
		}
	}
	return n
}
