package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Task completed successfully
	SymbolFail     = "✗" // Task failed
	SymbolComplete = "●" // Task done (alternative to success)
	SymbolStep     = ">" // Plain progress line
	SymbolWarning  = "!" // Something worth a second look
)
