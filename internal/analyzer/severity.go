package analyzer

import "github.com/fatih/color"

// Severity represents the danger level of a finding.
type Severity int

const (
	// Safe indicates no danger detected.
	Safe Severity = iota
	// Low indicates a minor concern.
	Low
	// Medium indicates moderate risk with workarounds available.
	Medium
	// High indicates a table lock or rewrite is likely.
	High
	// Critical indicates data loss or extended downtime.
	Critical
)

// String returns the uppercase label for the severity level.
func (s Severity) String() string {
	switch s {
	case Safe:
		return "SAFE"
	case Low:
		return "LOW"
	case Medium:
		return "MEDIUM"
	case High:
		return "HIGH"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Color returns the terminal style used to print the severity.
func (s Severity) Color() *color.Color {
	switch s {
	case Safe:
		return color.New(color.FgGreen)
	case Low:
		return color.New(color.FgCyan)
	case Medium:
		return color.New(color.FgYellow)
	case High:
		return color.New(color.FgRed)
	case Critical:
		return color.New(color.FgHiRed, color.Bold)
	default:
		return color.New(color.Reset)
	}
}

// Label returns the bracketed, colored severity label.
func (s Severity) Label() string {
	return s.Color().Sprintf("[%s]", s)
}
