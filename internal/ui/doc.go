// Package ui renders shellkey's terminal output.
//
// Printer writes one line per workflow step. Spinner animates the slow
// steps (key generation, connecting) when stdout is a terminal and falls
// back to a single final line otherwise.
//
// # Color Scheme
//
// Colors are ANSI codes, styled with Lip Gloss:
//
//	ColorSuccess   (green)  - Successful operations
//	ColorError     (red)    - Failures and errors
//	ColorWarning   (yellow) - Warnings
//	ColorInfo      (cyan)   - Highlighted values
//	ColorMuted     (gray)   - Prefixes, timing info
//
// SetColorEnabled(false) switches the Lip Gloss color profile to plain
// ASCII, for --no-color and NO_COLOR.
package ui
