package defs

/// Device identifiers for the output sinks the VM core can address.
/// Only the console survives from the original device table: this core
/// has no socket, raw disk, or profiling device of its own.
const (
	D_CONSOLE int = 1 /// console device; target of the exit banner
	D_FIRST       = D_CONSOLE
	D_LAST        = D_CONSOLE
)
