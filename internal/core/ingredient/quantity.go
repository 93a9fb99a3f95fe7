package ingredient

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedQuantity 數量字串無法解析
var ErrMalformedQuantity = errors.New("malformed quantity")

// quantityPattern 整數帶分數、分數、小數（逗號或點）
const quantityPattern = `(\d+\s+\d+\s*/\s*\d+|\d+\s*/\s*\d+|\d+(?:[.,]\d+)?)`

var mixedFractionRe = regexp.MustCompile(`^(\d+)\s+(\d+)\s*/\s*(\d+)$`)

// ParseQuantity 解析 "1/2"、"1 1/2"、"0,5"、"1.5" 等寫法，結果必須大於零
func ParseQuantity(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrMalformedQuantity
	}

	if m := mixedFractionRe.FindStringSubmatch(s); m != nil {
		whole, _ := strconv.ParseFloat(m[1], 64)
		frac, err := parseFraction(m[2], m[3])
		if err != nil {
			return 0, err
		}
		return whole + frac, nil
	}

	if num, den, ok := strings.Cut(s, "/"); ok {
		return parseFraction(strings.TrimSpace(num), strings.TrimSpace(den))
	}

	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedQuantity, raw)
	}
	return v, nil
}

func parseFraction(num, den string) (float64, error) {
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 || n <= 0 {
		return 0, fmt.Errorf("%w: %s/%s", ErrMalformedQuantity, num, den)
	}
	return n / d, nil
}

// isSmallCount 看起來像「一個」的數量：1、0.5 或小於 2 的分數
func isSmallCount(qty float64, raw string) bool {
	if qty == 1 || qty == 0.5 {
		return true
	}
	return strings.Contains(raw, "/") && qty > 0 && qty < 2
}
