package theme

import "charm.land/lipgloss/v2"

var (
	ColorBlack = lipgloss.Color("#000000")
	ColorWhite = lipgloss.Color("#FFFFFF")
	ColorDim   = lipgloss.Color("#666666")
)

var (
	ColorAccent = lipgloss.Color("#1D9BF0") // unread markers, selection
	ColorOK     = lipgloss.Color("#00BA7C") // connected
	ColorWarn   = lipgloss.Color("#FFD400") // reconnecting
	ColorError  = lipgloss.Color("#F4212E")
)

var (
	ColorBgDark  = lipgloss.Color("#15202B")
	ColorBgLight = lipgloss.Color("#22303C")
)
