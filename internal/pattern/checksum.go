// SPDX-License-Identifier: Apache-2.0

package pattern

// ValidCheckDigit reports whether a strict identifier carries a correct ISIN
// check digit (Luhn over the letter-expanded first eleven characters).
//
// Nothing in the default pipeline calls this as a filter; it is applied only
// when checksum enforcement is explicitly requested.
func ValidCheckDigit(isin string) bool {
	if !IsStrictIdentifier(isin) {
		return false
	}
	last := isin[IdentifierLength-1]
	if last < '0' || last > '9' {
		return false
	}

	digits := make([]byte, 0, 22)
	for i := 0; i < IdentifierLength-1; i++ {
		c := isin[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, c-'0')
		default:
			v := int(c-'A') + 10
			digits = append(digits, byte(v/10), byte(v%10))
		}
	}

	sum := 0
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i])
		if (len(digits)-1-i)%2 == 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return (10-sum%10)%10 == int(last-'0')
}
