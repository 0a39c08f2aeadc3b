// Package quality rejects gross translation failures: empty replies,
// echoed source text, error pages and output in the wrong script.
package quality

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrRejected is wrapped by every rejection returned from Check.
var ErrRejected = errors.New("translation rejected")

const (
	minCheckedInput = 50
	minLengthRatio  = 0.3
)

// Markers of a gateway error page, matched as plain substrings.
var sentinels = []string{"error", "failed", "undefined", "null"}

// Check returns nil when output is an acceptable translation of input.
func Check(output, input, sourceLang, targetLang string) error {
	out := strings.TrimSpace(output)
	in := strings.TrimSpace(input)

	if out == "" {
		return fmt.Errorf("%w: empty output", ErrRejected)
	}
	if out == in {
		return fmt.Errorf("%w: output identical to source", ErrRejected)
	}
	if tok := sentinel(out); tok != "" {
		return fmt.Errorf("%w: output contains error marker %q", ErrRejected, tok)
	}

	inLen := utf8.RuneCountInString(in)
	outLen := utf8.RuneCountInString(out)
	if inLen > minCheckedInput && float64(outLen) < float64(inLen)*minLengthRatio {
		return fmt.Errorf("%w: output too short (%d of %d chars)", ErrRejected, outLen, inLen)
	}

	src, dst := Normalize(sourceLang), Normalize(targetLang)
	if src != dst {
		if tables, ok := scriptOf[dst]; ok && !containsAny(out, tables) {
			return fmt.Errorf("%w: no %s script characters in output", ErrRejected, dst)
		}
	}
	return nil
}

// IsAcceptable is Check as a predicate.
func IsAcceptable(output, input, sourceLang, targetLang string) bool {
	return Check(output, input, sourceLang, targetLang) == nil
}

// sentinel returns the first error marker found anywhere in out.
func sentinel(out string) string {
	lower := strings.ToLower(out)
	for _, tok := range sentinels {
		if strings.Contains(lower, tok) {
			return tok
		}
	}
	return ""
}

// Normalize lowercases a language code and drops any region or script
// suffix ("pt-BR" -> "pt", "zh_Hans" -> "zh").
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

func containsAny(s string, tables []*unicode.RangeTable) bool {
	for _, r := range s {
		if unicode.In(r, tables...) {
			return true
		}
	}
	return false
}
