package simplefields

import (
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// The value codec maps each field type to a small behavior struct carrying its
// built-in sanitizer and validator. The map is closed over the known kinds but
// stays extensible through RegisterFieldType.

type kindBehavior struct {
	sanitize SanitizeFunc
	validate ValidateFunc
}

var (
	kindsMu sync.RWMutex
	kinds   = map[FieldType]kindBehavior{
		FieldText:     {sanitizeText, validateText},
		FieldTextarea: {sanitizeTextarea, validateText},
		FieldNumber:   {sanitizeNumber, validateNumber},
		FieldEmail:    {sanitizeEmail, validateEmail},
		FieldURL:      {sanitizeURL, validateURL},
		FieldSelect:   {sanitizeChoice, validateChoice},
		FieldRadio:    {sanitizeChoice, validateChoice},
		FieldCheckbox: {sanitizeCheckbox, validateAny},
		FieldDate:     {sanitizeDate, validateDate},
		FieldColor:    {sanitizeColor, validateColor},
		FieldFile:     {sanitizeIDList, validateIDList},
		FieldMedia:    {sanitizeIDList, validateIDList},
	}
)

// RegisterFieldType installs or replaces the built-in behavior for a field
// type. It is the extension point for custom kinds; either func may be nil to
// fall back to plain-text behavior.
func RegisterFieldType(t FieldType, sanitize SanitizeFunc, validate ValidateFunc) {
	if sanitize == nil {
		sanitize = sanitizeText
	}
	if validate == nil {
		validate = validateText
	}
	kindsMu.Lock()
	kinds[t] = kindBehavior{sanitize, validate}
	kindsMu.Unlock()
}

// KnownFieldType reports whether a behavior is registered for t.
func KnownFieldType(t FieldType) bool {
	kindsMu.RLock()
	_, ok := kinds[t]
	kindsMu.RUnlock()
	return ok
}

func kindFor(t FieldType) (kindBehavior, bool) {
	kindsMu.RLock()
	b, ok := kinds[t]
	kindsMu.RUnlock()
	return b, ok
}

// SanitizeValue cleans a raw value for a field using the built-in behavior for
// its type. Field- and group-level overrides are applied by Group.
func SanitizeValue(f *Field, raw interface{}) interface{} {
	b, ok := kindFor(f.Type)
	if !ok {
		return sanitizeText(raw, f)
	}
	return b.sanitize(raw, f)
}

// ValidateValue checks a raw value against a field definition. It returns ""
// when the value is acceptable or a human-readable message when it is not.
// The required check precedes type validation; an empty value on an optional
// field is always valid.
func ValidateValue(f *Field, raw interface{}) string {
	if IsEmptyValue(raw) {
		if f.Required {
			return fmt.Sprintf("%s is required", f.Label)
		}
		return ""
	}
	if f.Validate != nil {
		return f.Validate(raw, f)
	}
	b, ok := kindFor(f.Type)
	if !ok {
		return validateText(raw, f)
	}
	return b.validate(raw, f)
}

// IsEmptyValue reports whether a submitted value counts as absent: nil, an
// empty or whitespace-only string, or an empty slice.
func IsEmptyValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case []interface{}:
		return len(t) == 0
	}
	return false
}

// Coercion helpers

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "1"
		}
		return "0"
	}
	return fmt.Sprintf("%v", v)
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func toStringSlice(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, toString(e))
		}
		return out
	case string:
		if strings.Contains(t, ",") {
			parts := strings.Split(t, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if s := strings.TrimSpace(p); s != "" {
					out = append(out, s)
				}
			}
			return out
		}
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
		return nil
	case nil:
		return nil
	}
	return []string{toString(v)}
}

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// Built-in sanitizers

func sanitizeText(raw interface{}, _ *Field) interface{} {
	s := toString(raw)
	s = controlChars.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}

func sanitizeTextarea(raw interface{}, _ *Field) interface{} {
	s := toString(raw)
	s = controlChars.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func sanitizeNumber(raw interface{}, _ *Field) interface{} {
	f, ok := toFloat(raw)
	if !ok {
		return nil
	}
	return f
}

func sanitizeEmail(raw interface{}, _ *Field) interface{} {
	return strings.ToLower(strings.TrimSpace(toString(raw)))
}

func sanitizeURL(raw interface{}, _ *Field) interface{} {
	s := strings.TrimSpace(toString(raw))
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return u.String()
}

func sanitizeChoice(raw interface{}, f *Field) interface{} {
	s := toString(raw)
	for _, opt := range f.Options {
		if opt.Value == s {
			return s
		}
	}
	return ""
}

func sanitizeCheckbox(raw interface{}, _ *Field) interface{} {
	switch t := raw.(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "1" || s == "true" || s == "on" || s == "yes"
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}

func sanitizeDate(raw interface{}, _ *Field) interface{} {
	s := strings.TrimSpace(toString(raw))
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("2006-01-02")
	}
	return ""
}

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func sanitizeColor(raw interface{}, _ *Field) interface{} {
	s := strings.TrimSpace(toString(raw))
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if !colorPattern.MatchString(s) {
		return ""
	}
	return strings.ToLower(s)
}

func sanitizeIDList(raw interface{}, _ *Field) interface{} {
	ids := toStringSlice(raw)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// Built-in validators. Each receives a non-empty raw value; the required and
// empty-optional short-circuits have already run.

func invalidMsg(f *Field) string {
	return fmt.Sprintf("%s is invalid", f.Label)
}

func validateAny(_ interface{}, _ *Field) string { return "" }

func validateText(raw interface{}, f *Field) string {
	s := toString(raw)
	// Length limits count characters, not bytes.
	length := utf8.RuneCountInString(s)
	if v, ok := f.Attributes["minlength"]; ok {
		if n, err := strconv.Atoi(v); err == nil && length < n {
			return fmt.Sprintf("%s must be at least %d characters", f.Label, n)
		}
	}
	if v, ok := f.Attributes["maxlength"]; ok {
		if n, err := strconv.Atoi(v); err == nil && length > n {
			return fmt.Sprintf("%s must be at most %d characters", f.Label, n)
		}
	}
	if p, ok := f.Attributes["pattern"]; ok && p != "" {
		re, err := regexp.Compile(p)
		if err != nil || !re.MatchString(s) {
			return invalidMsg(f)
		}
	}
	return ""
}

func validateNumber(raw interface{}, f *Field) string {
	n, ok := toFloat(raw)
	if !ok {
		return invalidMsg(f)
	}
	if v, ok := f.Attributes["min"]; ok {
		if min, err := strconv.ParseFloat(v, 64); err == nil && n < min {
			return invalidMsg(f)
		}
	}
	if v, ok := f.Attributes["max"]; ok {
		if max, err := strconv.ParseFloat(v, 64); err == nil && n > max {
			return invalidMsg(f)
		}
	}
	if v, ok := f.Attributes["step"]; ok {
		if step, err := strconv.ParseFloat(v, 64); err == nil && step > 0 {
			base := 0.0
			if mv, ok := f.Attributes["min"]; ok {
				if min, err := strconv.ParseFloat(mv, 64); err == nil {
					base = min
				}
			}
			rem := math.Mod(n-base, step)
			if math.Abs(rem) > 1e-9 && math.Abs(rem-step) > 1e-9 {
				return invalidMsg(f)
			}
		}
	}
	return ""
}

func validateEmail(raw interface{}, f *Field) string {
	if _, err := mail.ParseAddress(strings.TrimSpace(toString(raw))); err != nil {
		return invalidMsg(f)
	}
	return ""
}

func validateURL(raw interface{}, f *Field) string {
	s := strings.TrimSpace(toString(raw))
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.ParseRequestURI(s)
	if err != nil || u.Host == "" {
		return invalidMsg(f)
	}
	return ""
}

func validateChoice(raw interface{}, f *Field) string {
	s := toString(raw)
	for _, opt := range f.Options {
		if opt.Value == s {
			return ""
		}
	}
	return invalidMsg(f)
}

func validateDate(raw interface{}, f *Field) string {
	s := strings.TrimSpace(toString(raw))
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return invalidMsg(f)
	}
	if v, ok := f.Attributes["min"]; ok {
		if min, err := time.Parse("2006-01-02", v); err == nil && t.Before(min) {
			return invalidMsg(f)
		}
	}
	if v, ok := f.Attributes["max"]; ok {
		if max, err := time.Parse("2006-01-02", v); err == nil && t.After(max) {
			return invalidMsg(f)
		}
	}
	return ""
}

func validateColor(raw interface{}, f *Field) string {
	s := strings.TrimSpace(toString(raw))
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if !colorPattern.MatchString(s) {
		return invalidMsg(f)
	}
	return ""
}

func validateIDList(raw interface{}, f *Field) string {
	ids := toStringSlice(raw)
	if len(ids) == 0 {
		return invalidMsg(f)
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return invalidMsg(f)
		}
	}
	return ""
}
