package cart

import (
	"strconv"
	"strings"
)

// MaxPadPrecision caps the precision accepted by PadZeros.
const MaxPadPrecision = 10

// PadZeros returns one '0' for each of the first precision
// thresholds 1, 10, 100, ... which is greater than value.
// Thresholds are kept in 16 bits and wrap past 10000, matching the
// console output of the peripheral tooling.
func PadZeros(value int, precision int) string {
	if precision > MaxPadPrecision {
		precision = MaxPadPrecision
	}
	var sb strings.Builder
	limit := uint16(1)
	for i := 0; i < precision; i++ {
		if value < int(limit) {
			sb.WriteByte('0')
		}
		limit *= 10
	}
	return sb.String()
}

// FormatPadded prints value in decimal behind its PadZeros prefix.
func FormatPadded(value int, precision int) string {
	return PadZeros(value, precision) + strconv.Itoa(value)
}
