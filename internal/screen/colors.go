package screen

import "math/rand"

// Named embed colors shared by every screen.
const (
	ColorWhite  = 0xffffff
	ColorRed    = 0xc30202
	ColorBlue   = 0x0099e1
	ColorOrange = 0xf75f1c
	ColorYellow = 0xf8c300
	ColorGreen  = 0x008e44
	ColorPurple = 0xa652bb
	ColorBrown  = 0xa5714e
	ColorBlack  = 0
)

// RandomColor returns a random 24-bit color.
func RandomColor() int {
	return rand.Intn(0x1000000)
}
