// Package capability defines the kinds of platform events a handler can
// respond to.
package capability

// Tag identifies the kind of event a registered handler responds to.
type Tag string

const (
	// MenuSelect fires when a dropdown value is chosen on a screen.
	MenuSelect Tag = "MenuSelect"
	// ButtonClick fires when a button is clicked on a screen.
	ButtonClick Tag = "ButtonClick"
	// Reply fires when a user replies directly to a screen.
	Reply Tag = "Reply"
	// Thread fires when a user posts in a screen's thread.
	Thread Tag = "Thread"
	// Help marks providers of additional help text for a screen.
	Help Tag = "Help"
)

// Valid reports whether t is one of the defined capability tags.
func (t Tag) Valid() bool {
	switch t {
	case MenuSelect, ButtonClick, Reply, Thread, Help:
		return true
	}
	return false
}
