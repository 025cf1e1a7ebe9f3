package ui

// Status symbols.
const (
	SymbolSuccess  = "✓"
	SymbolFail     = "✗"
	SymbolWarning  = "⚠"
	SymbolPending  = "○"
	SymbolComplete = "●"
)
