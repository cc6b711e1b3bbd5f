package hostfunc

import (
	"math"
	"strconv"
	"strings"
)

func FormatI32(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}

// FormatF64 renders v the way JavaScript's Number.prototype.toString does:
// shortest round-trip digits, plain decimal notation for exponents in
// [-6, 20] and d.ddde±x otherwise.
func FormatF64(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	case v < 0:
		return "-" + FormatF64(-v)
	}

	mant, exp, _ := strings.Cut(strconv.FormatFloat(v, 'e', -1, 64), "e")
	e, _ := strconv.Atoi(exp)
	digits := strings.Replace(mant, ".", "", 1)
	k := len(digits)
	n := e + 1 // position of the decimal point relative to digits

	switch {
	case k <= n && n <= 21:
		return digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return "0." + strings.Repeat("0", -n) + digits
	}

	sign := "+"
	if e < 0 {
		sign = "-"
		e = -e
	}
	if k == 1 {
		return digits + "e" + sign + strconv.Itoa(e)
	}
	return digits[:1] + "." + digits[1:] + "e" + sign + strconv.Itoa(e)
}
