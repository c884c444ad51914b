package archstate

// Config sizes every register file and the flat memory backing an
// ArchState. All widths are in bytes.
type Config struct {
	MrfDepth       int
	MrfWidth       int
	WbWidth        int
	NumXRegisters  int
	NumMRegisters  int
	NumWbRegisters int
	MemorySize     int
	NumFlags       int
}
