package logger

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sanitizer 清理日誌內容
//
// File names are arbitrary bytes. Control characters and invalid UTF-8 are
// escaped so a crafted name cannot split a log line or send terminal
// escape sequences; printable text, paths included, is left as is.
// Values logged under secret-like keys are masked entirely.
type Sanitizer struct {
	sensitiveKeys []string
}

var defaultSensitiveKeys = []string{
	"password", "passwd", "secret", "token", "api_key", "apikey", "credential",
}

// NewSanitizer 建立預設 sanitizer
func NewSanitizer() *Sanitizer {
	return &Sanitizer{sensitiveKeys: defaultSensitiveKeys}
}

// Sanitize escapes control characters and invalid bytes in s
func (s *Sanitizer) Sanitize(in string) string {
	if isClean(in) {
		return in
	}

	var b strings.Builder
	b.Grow(len(in) + 8)
	for i := 0; i < len(in); {
		r, size := utf8.DecodeRuneInString(in[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&b, `\x%02x`, in[i])
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case unicode.IsControl(r):
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

func isClean(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	return !strings.ContainsFunc(s, unicode.IsControl)
}

// SanitizeArgs returns a copy of key/value args with string and error
// values cleaned. Other value types pass through unchanged.
func (s *Sanitizer) SanitizeArgs(args []any) []any {
	if len(args) == 0 {
		return args
	}

	result := make([]any, len(args))
	copy(result, args)

	for i := 0; i+1 < len(result); i += 2 {
		key, ok := result[i].(string)
		if !ok {
			continue
		}

		var value string
		switch v := result[i+1].(type) {
		case string:
			value = v
		case error:
			value = v.Error()
		default:
			continue
		}

		if s.isSensitiveKey(key) {
			result[i+1] = "***"
		} else {
			result[i+1] = s.Sanitize(value)
		}
	}

	return result
}

// isSensitiveKey 判斷鍵名是否為敏感鍵
func (s *Sanitizer) isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range s.sensitiveKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
