// Package hangman implements the hangman game: the word arrives over DM, the
// guesses through the game's thread, and every state change funnels through
// the resource queue so concurrent guesses merge cleanly.
package hangman

import "strings"

// MaxWrong is the number of wrong guesses that loses the game.
const MaxWrong = 7

// State derives the visible game from the hidden word and the guesses made
// so far. Guesses are single letters or whole-word attempts.
type State struct {
	Word    string
	Guesses []string
}

// Guessed reports whether guess was already made.
func (s State) Guessed(guess string) bool {
	for _, g := range s.Guesses {
		if g == guess {
			return true
		}
	}
	return false
}

// Masked renders the word with unguessed letters blanked.
func (s State) Masked() string {
	if s.solved() {
		return spaced(s.Word)
	}
	var b strings.Builder
	for i, r := range s.Word {
		if i > 0 {
			b.WriteByte(' ')
		}
		if s.Guessed(string(r)) {
			b.WriteRune(r)
		} else {
			b.WriteString("\\_")
		}
	}
	return b.String()
}

// Wrong lists the guesses that hit nothing.
func (s State) Wrong() []string {
	var out []string
	for _, g := range s.Guesses {
		if len([]rune(g)) == 1 && strings.Contains(s.Word, g) {
			continue
		}
		if g == s.Word {
			continue
		}
		out = append(out, g)
	}
	return out
}

// Won reports whether the word is fully revealed or guessed outright.
func (s State) Won() bool {
	return !s.Lost() && s.solved()
}

// Lost reports whether the wrong guesses reached the limit.
func (s State) Lost() bool {
	return len(s.Wrong()) >= MaxWrong
}

func (s State) solved() bool {
	if s.Guessed(s.Word) {
		return true
	}
	for _, r := range s.Word {
		if !s.Guessed(string(r)) {
			return false
		}
	}
	return s.Word != ""
}

func spaced(word string) string {
	out := make([]string, 0, len(word))
	for _, r := range word {
		out = append(out, string(r))
	}
	return strings.Join(out, " ")
}
