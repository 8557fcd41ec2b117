// utils/format.go
package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatDULP renders an amount with thousands separators, e.g. 100000 -> "100,000".
func FormatDULP(amount int64) string {
	return printer.Sprintf("%d", amount)
}
