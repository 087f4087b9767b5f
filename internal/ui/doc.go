// Package ui renders sync progress and summaries for the terminal with lipgloss styles.
//
// Output is plain text when the writer is not a terminal; lipgloss drops the colors on its own.
package ui
