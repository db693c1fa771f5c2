package emu

// Config contains settings that affect emulation behavior.
type Config struct {
	// Trace is stored on the Machine but not consulted by it; UnknownOpcode
	// faults are logged only through a logger installed with SetOpcodeLogger.
	Trace bool
}
