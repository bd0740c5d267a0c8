// Package numlit parses the integer operand literals of assembly text:
// decimal, or 0x / 0b / 0o prefixed, with an optional sign and '_' between
// digits.
package numlit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrRange = errors.New("integer literal out of range")

type IntLiteral struct {
	Negative   bool
	Base       int
	Digits     string
	Normalized string
}

func NormalizeIntLiteral(lit string) (IntLiteral, error) {
	var info IntLiteral
	digits := lit
	if digits != "" && (digits[0] == '-' || digits[0] == '+') {
		info.Negative = digits[0] == '-'
		digits = digits[1:]
	}

	info.Base = 10
	if len(digits) >= 2 && digits[0] == '0' {
		switch digits[1] {
		case 'x', 'X':
			info.Base = 16
			digits = digits[2:]
		case 'b', 'B':
			info.Base = 2
			digits = digits[2:]
		case 'o', 'O':
			info.Base = 8
			digits = digits[2:]
		}
	}
	if err := validateDigits(digits, info.Base); err != nil {
		return IntLiteral{}, fmt.Errorf("invalid integer literal: %w", err)
	}
	info.Digits = digits
	info.Normalized = stripUnderscores(digits)
	if info.Negative {
		info.Normalized = "-" + info.Normalized
	}
	return info, nil
}

// ParseInt32 parses lit into the signed 32-bit operand range.
func ParseInt32(lit string) (int32, error) {
	info, err := NormalizeIntLiteral(lit)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(info.Normalized, info.Base, 32)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
			return 0, ErrRange
		}
		return 0, errors.New("invalid integer literal")
	}
	return int32(v), nil
}

func validateDigits(s string, base int) error {
	if s == "" {
		return fmt.Errorf("digits required")
	}
	prevUnderscore := false
	seenDigit := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '_' {
			if !seenDigit || prevUnderscore {
				return fmt.Errorf("underscores must separate digits")
			}
			prevUnderscore = true
			continue
		}
		if !isDigitForBase(ch, base) {
			return fmt.Errorf("invalid digit %q for base %d", ch, base)
		}
		seenDigit = true
		prevUnderscore = false
	}
	if prevUnderscore {
		return fmt.Errorf("underscores must separate digits")
	}
	return nil
}

func isDigitForBase(ch byte, base int) bool {
	switch {
	case ch >= '0' && ch <= '9':
		return int(ch-'0') < base
	case base == 16 && ch >= 'a' && ch <= 'f':
		return true
	case base == 16 && ch >= 'A' && ch <= 'F':
		return true
	default:
		return false
	}
}

func stripUnderscores(s string) string {
	if strings.IndexByte(s, '_') == -1 {
		return s
	}
	return strings.ReplaceAll(s, "_", "")
}
