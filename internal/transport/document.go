package transport

import "fmt"

// Document is the externally hosted editable message a screen renders into.
// It is transient: fetched fresh per event, never cached between handlers.
type Document struct {
	ID        string
	ChannelID string
	GuildID   string

	Title       string
	Description string
	// Content is the plain text outside the embed, used for screen-wide
	// markers such as `Fixed` and `Ended`.
	Content string
	// Footer carries the encoded screen type; see the screen package.
	Footer string
	Color  int
	Pinned bool

	Controls []Control
}

// ControlKind discriminates interactive control types.
type ControlKind int

const (
	// KindButton is a clickable button.
	KindButton ControlKind = iota
	// KindMenu is a dropdown select menu.
	KindMenu
)

// ButtonStyle mirrors the platform's button color styles.
type ButtonStyle int

const (
	StyleGray ButtonStyle = iota
	StyleBlurple
	StyleGreen
	StyleRed
)

// Control is one interactive element on a document. A menu occupies a full
// row; buttons pack up to maxRowWidth per row.
type Control struct {
	Kind     ControlKind
	ID       string
	Label    string
	Emoji    string
	Style    ButtonStyle
	Row      int // -1 places the control in the first row with space
	Disabled bool

	// Menu fields.
	Placeholder string
	Options     []Option
	MaxValues   int
}

// Option is one selectable menu entry.
type Option struct {
	Label       string
	Description string
}

const (
	maxRows     = 5
	maxRowWidth = 5
)

// Layout validates and normalizes control placement, assigning rows to
// auto-placed controls. It returns ErrLayoutOverflow when the controls cannot
// fit the platform's row grid.
func Layout(controls []Control) ([]Control, error) {
	widths := [maxRows]int{}
	out := make([]Control, 0, len(controls))
	for _, c := range controls {
		need := 1
		if c.Kind == KindMenu {
			need = maxRowWidth
		}
		row := c.Row
		if row < 0 {
			row = -1
			for r := 0; r < maxRows; r++ {
				if widths[r]+need <= maxRowWidth {
					row = r
					break
				}
			}
			if row < 0 {
				return nil, fmt.Errorf("place control %q: %w", c.ID, ErrLayoutOverflow)
			}
		} else {
			if row >= maxRows {
				return nil, fmt.Errorf("row %d out of range: %w", row, ErrLayoutOverflow)
			}
			if widths[row]+need > maxRowWidth {
				return nil, fmt.Errorf("row %d full: %w", row, ErrLayoutOverflow)
			}
		}
		widths[row] += need
		c.Row = row
		out = append(out, c)
	}
	return out, nil
}

// Control finds a control by id.
func (d Document) Control(id string) (Control, bool) {
	for _, c := range d.Controls {
		if c.ID == id {
			return c, true
		}
	}
	return Control{}, false
}

// Buttons returns the document's button controls in declaration order.
func (d Document) Buttons() []Control {
	var out []Control
	for _, c := range d.Controls {
		if c.Kind == KindButton {
			out = append(out, c)
		}
	}
	return out
}

// Cross-cutting controls present on most screens. Their labels double as the
// dispatch discriminant, so they are stable identifiers.
const (
	DeleteLabel = "delete"
	HelpLabel   = "help"
	BackLabel   = "back"
	HomeLabel   = "home"
)

// DeleteButton builds the shared delete control.
func DeleteButton() Control {
	return Control{Kind: KindButton, ID: DeleteLabel, Label: DeleteLabel, Style: StyleBlurple, Row: -1}
}

// HelpButton builds the shared help control.
func HelpButton() Control {
	return Control{Kind: KindButton, ID: HelpLabel, Label: HelpLabel, Style: StyleGray, Row: -1}
}

// BackButton builds the shared back control.
func BackButton() Control {
	return Control{Kind: KindButton, ID: BackLabel, Label: BackLabel, Style: StyleGray, Row: -1}
}

// HomeButton builds the shared home control.
func HomeButton() Control {
	return Control{Kind: KindButton, ID: HomeLabel, Label: HomeLabel, Style: StyleGray, Row: -1}
}
