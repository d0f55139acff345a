package core

import "strings"

// utf8BOM is prepended by many Windows spreadsheet exports.
const utf8BOM = "\ufeff"

// TrimBOM removes a leading UTF-8 byte order mark.
func TrimBOM(text string) string {
	return strings.TrimPrefix(text, utf8BOM)
}
