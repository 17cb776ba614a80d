package hotkeys

const (
	vkTab    VKey = 0x09
	vkReturn VKey = 0x0D
	vkEscape VKey = 0x1B
	vkSpace  VKey = 0x20
	vkPgUp   VKey = 0x21
	vkPgDown VKey = 0x22
	vkEnd    VKey = 0x23
	vkHome   VKey = 0x24
	vkLeft   VKey = 0x25
	vkUp     VKey = 0x26
	vkRight  VKey = 0x27
	vkDown   VKey = 0x28
	vkInsert VKey = 0x2D
	vkDelete VKey = 0x2E
	vkF1     VKey = 0x70

	vkOem1      VKey = 0xBA
	vkOemPlus   VKey = 0xBB
	vkOemComma  VKey = 0xBC
	vkOemMinus  VKey = 0xBD
	vkOemPeriod VKey = 0xBE
	vkOem2      VKey = 0xBF
	vkOem3      VKey = 0xC0
	vkOem4      VKey = 0xDB
	vkOem6      VKey = 0xDD
	vkOem7      VKey = 0xDE
)

// keyByName maps upper-cased main-key tokens to virtual keys. Letters,
// digits, function keys and hex codes are handled in parseKey.
var keyByName = map[string]VKey{
	"SPACE":      vkSpace,
	"TAB":        vkTab,
	"ENTER":      vkReturn,
	"RETURN":     vkReturn,
	"ESC":        vkEscape,
	"ESCAPE":     vkEscape,
	"DELETE":     vkDelete,
	"INSERT":     vkInsert,
	"HOME":       vkHome,
	"END":        vkEnd,
	"PAGEUP":     vkPgUp,
	"PAGEDOWN":   vkPgDown,
	"LEFT":       vkLeft,
	"RIGHT":      vkRight,
	"UP":         vkUp,
	"DOWN":       vkDown,
	"ARROWLEFT":  vkLeft,
	"ARROWRIGHT": vkRight,
	"ARROWUP":    vkUp,
	"ARROWDOWN":  vkDown,
	"PLUS":       vkOemPlus,
	"=":          vkOemPlus,
	",":          vkOemComma,
	"-":          vkOemMinus,
	".":          vkOemPeriod,
	"/":          vkOem2,
	";":          vkOem1,
	"'":          vkOem7,
	"[":          vkOem4,
	"]":          vkOem6,
	"`":          vkOem3,
	"BACKQUOTE":  vkOem3,
	"GRAVE":      vkOem3,
}
