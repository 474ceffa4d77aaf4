package bson

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Decimal128 is an IEEE 754-2008 decimal128 value in the binary integer
// (BID) encoding. The bytes are carried opaquely through the codec; the
// only interpretation implemented here is the conversion to and from the
// decimal string form, which the extended JSON rendering needs. There is
// no arithmetic.
type Decimal128 struct {
	h, l uint64
}

const (
	decimalExponentBias = 6176
	decimalMaxExponent  = 6111
	decimalMinExponent  = -6176
	decimalMaxDigits    = 34
)

// NewDecimal128 builds a value from the high and low 64 bits of the BID
// encoding.
func NewDecimal128(h, l uint64) Decimal128 {
	return Decimal128{h: h, l: l}
}

// Decimal128FromBytes reads the 16-byte wire layout: the low 8 bytes
// little-endian, then the high 8 bytes little-endian.
func Decimal128FromBytes(b [16]byte) Decimal128 {
	var d Decimal128
	for i := 7; i >= 0; i-- {
		d.l = d.l<<8 | uint64(b[i])
		d.h = d.h<<8 | uint64(b[i+8])
	}
	return d
}

// Bytes returns the 16-byte wire layout.
func (d Decimal128) Bytes() [16]byte {
	var b [16]byte
	l, h := d.l, d.h
	for i := 0; i < 8; i++ {
		b[i] = byte(l)
		b[i+8] = byte(h)
		l >>= 8
		h >>= 8
	}
	return b
}

// GetBytes returns the high and low 64 bits of the BID encoding.
func (d Decimal128) GetBytes() (h, l uint64) { return d.h, d.l }

// IsNaN reports whether the value is any NaN encoding.
func (d Decimal128) IsNaN() bool { return d.h>>58&0x1F == 0x1F }

// IsInf reports whether the value is an infinity: +1 for positive, -1 for
// negative, 0 for finite values and NaN.
func (d Decimal128) IsInf() int {
	if d.h>>58&0x1F != 0x1E {
		return 0
	}
	if d.h>>63 == 1 {
		return -1
	}
	return 1
}

// String renders the value per the decimal128 textual rules: plain decimal
// notation unless the exponent is positive or the adjusted exponent falls
// below -6, in which case scientific notation is used.
func (d Decimal128) String() string {
	if d.IsNaN() {
		return "NaN"
	}
	switch d.IsInf() {
	case 1:
		return "Infinity"
	case -1:
		return "-Infinity"
	}

	var exp int32
	var hi, lo uint64
	if d.h>>61&0x3 == 0x3 {
		// Combination-field form: the implied significand prefix pushes
		// the value past 34 digits, so it is non-canonical and reads as
		// zero at the encoded exponent.
		exp = int32(d.h>>47&0x3FFF) - decimalExponentBias
	} else {
		exp = int32(d.h>>49&0x3FFF) - decimalExponentBias
		hi = d.h & 0x1FFFFFFFFFFFF
		lo = d.l
	}

	digits := significandDigits(hi, lo)
	if len(digits) > decimalMaxDigits {
		// Non-canonical significand, reads as zero.
		digits = "0"
	}

	var sb strings.Builder
	if d.h>>63 == 1 {
		sb.WriteByte('-')
	}

	adjusted := exp + int32(len(digits)) - 1
	if exp > 0 || adjusted < -6 {
		// Scientific notation: one leading digit, the rest fractional.
		sb.WriteByte(digits[0])
		if len(digits) > 1 {
			sb.WriteByte('.')
			sb.WriteString(digits[1:])
		}
		if adjusted >= 0 {
			fmt.Fprintf(&sb, "E+%d", adjusted)
		} else {
			fmt.Fprintf(&sb, "E%d", adjusted)
		}
		return sb.String()
	}

	if exp == 0 {
		sb.WriteString(digits)
		return sb.String()
	}
	point := int32(len(digits)) + exp
	if point <= 0 {
		sb.WriteString("0.")
		for ; point < 0; point++ {
			sb.WriteByte('0')
		}
		sb.WriteString(digits)
	} else {
		sb.WriteString(digits[:point])
		sb.WriteByte('.')
		sb.WriteString(digits[point:])
	}
	return sb.String()
}

// significandDigits converts the 113-bit significand to decimal digits.
func significandDigits(hi, lo uint64) string {
	if hi == 0 && lo == 0 {
		return "0"
	}
	var buf [40]byte
	i := len(buf)
	for hi != 0 || lo != 0 {
		var rem uint64
		hi, lo, rem = divmod128(hi, lo, 10)
		i--
		buf[i] = '0' + byte(rem)
	}
	return string(buf[i:])
}

// divmod128 divides the 128-bit value hi:lo by a small divisor.
func divmod128(hi, lo, div uint64) (qhi, qlo, rem uint64) {
	qhi = hi / div
	rem = hi % div
	qlo, rem = bits.Div64(rem, lo, div)
	return qhi, qlo, rem
}

// muladd128 computes hi:lo * mul + add, reporting overflow past 128 bits.
func muladd128(hi, lo, mul, add uint64) (uint64, uint64, bool) {
	carryHi, newLo := bits.Mul64(lo, mul)
	var c uint64
	newLo, c = bits.Add64(newLo, add, 0)
	carryHi += c
	overflow, mulHi := bits.Mul64(hi, mul)
	if overflow != 0 {
		return 0, 0, false
	}
	newHi, c := bits.Add64(mulHi, carryHi, 0)
	if c != 0 {
		return 0, 0, false
	}
	return newHi, newLo, true
}

// ParseDecimal128 parses the textual form accepted by the extended JSON
// $numberDecimal marker: an optional sign, digits with an optional point,
// an optional E exponent, or NaN / Infinity / -Infinity.
func ParseDecimal128(s string) (Decimal128, error) {
	orig := s
	fail := func() (Decimal128, error) {
		return Decimal128{}, fmt.Errorf("bson: invalid decimal128 %q", orig)
	}
	if s == "" {
		return fail()
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	switch s {
	case "NaN", "nan":
		return Decimal128{h: 0x7c << 56}, nil
	case "Infinity", "Inf", "infinity", "inf":
		h := uint64(0x78) << 56
		if neg {
			h |= 1 << 63
		}
		return Decimal128{h: h}, nil
	}

	mantissa := s
	var exp int64
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mantissa = s[:i]
		var err error
		if exp, err = strconv.ParseInt(s[i+1:], 10, 64); err != nil {
			return fail()
		}
	}
	intPart := mantissa
	var fracPart string
	if i := strings.IndexByte(mantissa, '.'); i >= 0 {
		intPart, fracPart = mantissa[:i], mantissa[i+1:]
	}
	if intPart == "" && fracPart == "" {
		return fail()
	}
	exp -= int64(len(fracPart))

	var hi, lo uint64
	digits := 0
	seenNonzero := false
	for _, part := range [2]string{intPart, fracPart} {
		for i := 0; i < len(part); i++ {
			c := part[i]
			if c < '0' || c > '9' {
				return fail()
			}
			if c != '0' {
				seenNonzero = true
			}
			if !seenNonzero {
				continue // leading zeros carry no information
			}
			var ok bool
			hi, lo, ok = muladd128(hi, lo, 10, uint64(c-'0'))
			if !ok {
				return fail()
			}
			digits++
			if digits > decimalMaxDigits {
				return Decimal128{}, fmt.Errorf("bson: decimal128 %q exceeds %d significant digits", orig, decimalMaxDigits)
			}
		}
	}
	if digits == 0 {
		digits = 1 // the value is zero
	}

	// Fold an over-range exponent back by padding the significand with
	// zeros while digits remain.
	for exp > decimalMaxExponent && digits < decimalMaxDigits {
		var ok bool
		hi, lo, ok = muladd128(hi, lo, 10, 0)
		if !ok {
			return fail()
		}
		digits++
		exp--
	}
	// A zero significand can absorb any remaining excess in either
	// direction.
	if hi == 0 && lo == 0 {
		if exp > decimalMaxExponent {
			exp = decimalMaxExponent
		}
		if exp < decimalMinExponent {
			exp = decimalMinExponent
		}
	}
	if exp > decimalMaxExponent || exp < decimalMinExponent {
		return Decimal128{}, fmt.Errorf("bson: decimal128 %q exponent %d out of range", orig, exp)
	}

	h := hi | uint64(exp+decimalExponentBias)<<49
	if neg {
		h |= 1 << 63
	}
	return Decimal128{h: h, l: lo}, nil
}
