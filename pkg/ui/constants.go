package ui

// Table Column Titles
const (
	ColListen     = "LISTEN"
	ColTargetHost = "TARGET HOST"
	ColTargetPort = "TARGET PORT"
	ColStatus     = "STATUS"
)

// Action Lines / Key Hints
const (
	ActionRulesNav      = "↑/↓: Navigate | a: Add | space: Toggle | x: Remove | o: Open | y: Copy URL | s/t/c: Start/Stop/Check service | h: Page | q: Quit"
	ActionRulesNavShort = "a:Add | space:Toggle | x:Remove | o:Open | y:Copy | s/t/c:Service | h:Page | q:Quit"
	ActionAddRule       = "tab: Next field | enter: Add rule | esc: Cancel"
	ActionPageEditor    = "tab: Next field | ctrl+s: Save | esc: Cancel"
	ActionCredential    = "enter: Submit | esc: Quit"
)

// Keyboard shortcuts
const (
	ShortcutAdd          = "a"
	ShortcutToggle       = " "
	ShortcutRemove       = "x"
	ShortcutOpen         = "o"
	ShortcutCopy         = "y"
	ShortcutStartService = "s"
	ShortcutStopService  = "t"
	ShortcutCheckService = "c"
	ShortcutPage         = "h"
	ShortcutQuit         = "q"
	ShortcutSavePage     = "ctrl+s"
)

// Numeric Constants for Layout/Indexing
const (
	MinTableHeight    = 4  // Minimum height for the rule table
	MinLogLines       = 3  // Minimum lines of the output log pane
	RulesViewOffset   = 8  // Non-table, non-log lines in the rules view
	NarrowWidth       = 80 // Below this the help line moves to the bottom
	DefaultListenPort = "80"
	DefaultTargetHost = "127.0.0.1"
	DefaultTargetPort = "8080"
)

// Status Strings - display-only projections of supervisor state
const (
	StatusActive   = "● Active"
	StatusDegraded = "◐ Degraded"
	StatusInactive = "○ Inactive"
	StatusExited   = "✕ Exited"
)

// Lipgloss Colors
const (
	ColorBorder     = "240"
	ColorSelectedFg = "229"
	ColorSelectedBg = "57"
	ColorTitle      = "14"  // Cyan for titles
	ColorHelp       = "245" // Grey for help text
	ColorError      = "9"   // Red for errors
	ColorLabel      = "11"  // Yellow for form labels
	ColorWarnLine   = "214"
	ColorGoodBg     = "2"
	ColorWarningBg  = "208"
	ColorBadBg      = "1"
	ColorNeutralBg  = "238"
	ColorLightFg    = "15"
	ColorDarkFg     = "0"
)

const AppTitle = "portpanel - web server & port forwarding"
