package main

import (
	"fmt"
	"os"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// notify writes one tagged line to stderr, keeping stdout free for
// pipeable command output.
func notify(color, tag, format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(color, tag+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { notify(colorGreen, "✓", format, args...) }
func printError(format string, args ...any)   { notify(colorRed, "✗", format, args...) }
func printWarning(format string, args ...any) { notify(colorYellow, "⚠", format, args...) }

// printStatus renders one indented "label: value" line of status output.
func printStatus(label, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}
