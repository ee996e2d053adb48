package poll

import "strings"

// en quad, the same fixed-width pad the footer codec uses.
const pad = " "

// narrowRunes render at roughly half width in the client's button font.
const narrowRunes = "ijtlfI "

// alignLabels pads response labels with en quads so the buttons line up
// in equal-width columns. Narrow runes count half, mirroring the footer
// codec's width accounting.
func alignLabels(labels []string) []string {
	width := 0
	for _, label := range labels {
		if n := len([]rune(label)); n > width {
			width = n
		}
	}
	out := make([]string, len(labels))
	for i, label := range labels {
		n := width - len([]rune(label)) + narrowCount(label)/2
		out[i] = label + strings.Repeat(pad, n)
	}
	return out
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
