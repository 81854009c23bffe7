// Package normalize turns loosely typed prices and volume labels from carts
// and carrier APIs into canonical numbers.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// moneyKeys are tried in order when a price arrives as an object.
var moneyKeys = []string{"price", "total", "amount", "value"}

// ParseMoney extracts a currency amount from v. It accepts Go numbers,
// json.Number, strings such as "R$ 1.234,56" or "12.90", and objects
// carrying one of price, total, amount or value. ok is false whenever no
// finite number can be extracted; callers must treat that as an unknown
// price and never as zero.
func ParseMoney(v any) (amount float64, ok bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(t)
	case float32:
		return finite(float64(t))
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		return parseMoneyString(t.String())
	case string:
		return parseMoneyString(t)
	case map[string]any:
		for _, k := range moneyKeys {
			if inner, present := t[k]; present && inner != nil {
				return ParseMoney(inner)
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseMoneyString keeps digits, separators and the sign, then decides
// which separator is the decimal point: with both present the last one
// wins, and a separator that repeats is a thousands separator. A lone dot
// followed by exactly three digits is a pt-BR thousands separator
// ("R$ 1.234"); any other single separator is the decimal point.
func parseMoneyString(s string) (float64, bool) {
	var b strings.Builder
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
			b.WriteRune(r)
		case r == ',' || r == '.' || r == '-':
			b.WriteRune(r)
		}
	}
	if digits == 0 {
		return 0, false
	}
	cleaned := b.String()

	lastComma := strings.LastIndexByte(cleaned, ',')
	lastDot := strings.LastIndexByte(cleaned, '.')

	var decimal, thousands string
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			decimal, thousands = ",", "."
		} else {
			decimal, thousands = ".", ","
		}
	case lastComma >= 0:
		decimal = ","
	case lastDot >= 0 && strings.Count(cleaned, ".") == 1 && len(cleaned)-lastDot-1 == 3:
		thousands = "."
	case lastDot >= 0:
		decimal = "."
	}

	if thousands != "" {
		cleaned = strings.ReplaceAll(cleaned, thousands, "")
	}
	if decimal != "" {
		if strings.Count(cleaned, decimal) > 1 {
			cleaned = strings.ReplaceAll(cleaned, decimal, "")
		} else {
			cleaned = strings.Replace(cleaned, decimal, ".", 1)
		}
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}
