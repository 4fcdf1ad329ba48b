// Package expr evaluates the arithmetic shown on a math captcha.
package expr

import (
	"math"
	"regexp"
	"strings"

	"github.com/dop251/goja"
)

// expression is one or more non-negative integers joined by binary operators.
// A run of zeros is a zero; any other leading zero is rejected.
var expression = regexp.MustCompile(`^(0+|[1-9][0-9]*)([-+*/](0+|[1-9][0-9]*))*$`)

var zeros = regexp.MustCompile(`(^|[-+*/])0+`)

// Clean removes the "=" and "?" placeholders.
func Clean(text string) string {
	return strings.NewReplacer("=", "", "?", "").Replace(text)
}

// Evaluate cleans text and computes it with the usual precedence. Division
// is exact and the final value is truncated toward zero. ok is false when the
// text is not a well-formed expression or the result is not finite.
func Evaluate(text string) (value int, ok bool) {
	cleaned := Clean(text)
	if !expression.MatchString(cleaned) {
		return 0, false
	}

	// "00" would be a legacy octal literal to the evaluator.
	cleaned = zeros.ReplaceAllString(cleaned, "${1}0")

	vm := goja.New()
	v, err := vm.RunString(cleaned)
	if err != nil {
		return 0, false
	}

	f := v.ToFloat()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	t := math.Trunc(f)
	// Beyond 2^53 the float result is no longer an exact integer.
	if math.Abs(t) > 1<<53 {
		return 0, false
	}
	return int(t), true
}
