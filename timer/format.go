package timer

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatClock renders seconds as HH:MM:SS, dropping the fraction.
func FormatClock(seconds decimal.Decimal) string {
	total := seconds.Floor().IntPart()
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
