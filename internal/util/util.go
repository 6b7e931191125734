// Package util provides the small string helpers shared by the parser,
// telemetry and storage layers.
package util

import "strings"

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArg unquotes a command argument and trims surrounding whitespace.
func CleanArg(s string) string {
	return strings.TrimSpace(FixEscapeQuotes(TrimQuotes(s)))
}

var fileNameReplacer = strings.NewReplacer(" ", "_", ":", "_", "/", "_", `\`, "_")

// SafeFileName replaces characters that break file names on common
// platforms with underscores.
func SafeFileName(name string) string {
	return fileNameReplacer.Replace(name)
}
