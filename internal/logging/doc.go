// Package logging provides concrete implementations of the skilldeploy.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: Leveled output on stderr backed by charmbracelet/log
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
