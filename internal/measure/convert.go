package measure

// truncate is the rounding rule shared by the conversion laws: the quotient
// is already truncated toward zero, and a result whose last decimal digit is
// 9 is bumped by one. The remainder follows Go's truncated semantics, so
// negative results are never bumped.
func truncate(n int64) int64 {
	if n%10 == 9 {
		n++
	}
	return n
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// MillivoltsFromRaw converts a voltage register code to millivolts using one
// of the FactorLow, FactorMid or FactorHigh scales.
func MillivoltsFromRaw(raw, factor int64) int64 {
	return truncate(raw * factor / (1000 * 10))
}

// RawFromMillivolts converts millivolts to a voltage register code.
func RawFromMillivolts(mv, factor int64) int64 {
	if factor == 0 {
		return 0
	}
	return truncate(mv * 1000 * 10 / factor)
}

// FaradsFromRaw converts the stack capacitance register to farads.
//
//	C = raw * 336µF * RT / RTST
func FaradsFromRaw(raw int64) int64 {
	return truncate(raw * 336 * RT / RTST / 1_000_000)
}

// RawFromFarads converts farads to a capacitance register code. The inverse
// law does not apply the last-digit bias.
func RawFromFarads(f int64) int64 {
	return 1_000_000 * f * RTST / RT / 336
}

// MilliohmsFromRaw converts the stack ESR register to milliohms.
func MilliohmsFromRaw(raw int64) int64 {
	return truncate(raw * RSNSC / 64)
}

// RawFromMilliohms converts milliohms to an ESR register code.
func RawFromMilliohms(mr int64) int64 {
	return truncate(mr * 64 / RSNSC)
}

// CelsiusFromRaw converts the die temperature register to degrees Celsius.
//
//	T = 0.028 * raw - 251.4
//
// computed in thousandths. When the scaled value sits in the top tenth of its
// thousand-bucket it is moved into the next bucket before truncating.
func CelsiusFromRaw(raw int64) int64 {
	scaled := 28*raw - 251400
	if floorDiv(scaled+100, 1000) != floorDiv(scaled, 1000) {
		scaled += 100
	}
	return truncate(scaled / 1000)
}

// RawFromCelsius converts degrees Celsius to a die temperature register code.
func RawFromCelsius(c int64) int64 {
	return truncate((c*1000 + 251400) / 28)
}
