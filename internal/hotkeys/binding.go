package hotkeys

// Modifier is a Win32 hotkey modifier bitmask. The values are also used on
// other platforms so that validation behaves identically everywhere.
type Modifier uint32

// VKey is a Win32 virtual-key code.
type VKey uint32

const (
	modAlt     Modifier = 0x0001
	modControl Modifier = 0x0002
	modShift   Modifier = 0x0004
	modWin     Modifier = 0x0008
)

// Binding is a parsed global hotkey. Construct only via ParseBinding.
type Binding struct {
	modifiers  Modifier
	key        VKey
	normalized string
}

// Modifiers returns the modifier bitmask.
func (b Binding) Modifiers() Modifier { return b.modifiers }

// Key returns the virtual-key code.
func (b Binding) Key() VKey { return b.key }

// Normalized returns the canonical binding string, in the same grammar the
// shortcut registry stores ("Cmd+Ctrl+Alt+Shift+KEY").
func (b Binding) Normalized() string { return b.normalized }
