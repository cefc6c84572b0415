package service

// luhnCheckDigit returns the digit that makes digits+check pass Luhn.
func luhnCheckDigit(digits []int) int {
	sum := 0
	length := len(digits)

	for i := 0; i < length; i++ {
		digit := digits[length-1-i]
		if i%2 == 0 {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
	}

	return (10 - (sum % 10)) % 10
}

// validLuhn reports whether a digit sequence passes Luhn.
func validLuhn(digits []int) bool {
	if len(digits) < 2 {
		return false
	}
	return luhnCheckDigit(digits[:len(digits)-1]) == digits[len(digits)-1]
}

// parseDigits converts s to digits, failing on any non digit.
func parseDigits(s string) ([]int, bool) {
	if s == "" {
		return nil, false
	}
	digits := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return nil, false
		}
		digits[i] = int(c - '0')
	}
	return digits, true
}

// LuhnValid reports whether s is all digits and passes Luhn.
func LuhnValid(s string) bool {
	digits, ok := parseDigits(s)
	return ok && validLuhn(digits)
}
