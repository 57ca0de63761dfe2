package schema

import (
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

var namedColors = map[string]bool{
	"black": true, "white": true, "red": true, "green": true, "blue": true,
	"yellow": true, "orange": true, "purple": true, "gray": true, "grey": true,
	"transparent": true, "inherit": true, "currentcolor": true,
}

// IsColor accepts hex colors, rgb()/rgba()/hsl() notations and a few names.
func IsColor(s string) bool {
	s = strings.TrimSpace(s)
	if hexColor.MatchString(s) {
		return true
	}
	lower := strings.ToLower(s)
	for _, fn := range []string{"rgb(", "rgba(", "hsl(", "hsla("} {
		if strings.HasPrefix(lower, fn) && strings.HasSuffix(lower, ")") {
			return true
		}
	}
	return namedColors[lower]
}

// IsHexColor reports whether s is a #rgb or #rrggbb style color.
func IsHexColor(s string) bool {
	return hexColor.MatchString(strings.TrimSpace(s))
}

func isStringType(t FieldType) bool {
	switch t {
	case TypeString, TypeText, TypeColor, TypeSelect, TypeURL, TypeEmail, TypeImage:
		return true
	}
	return false
}

// checkValue returns a message describing why v does not fit f, or "".
func checkValue(f Field, v any) string {
	if f.Type == TypeNumber {
		n, ok := ToFloat(v)
		if !ok {
			return fmt.Sprintf("must be a number, got %T", v)
		}
		if f.Min != nil && n < *f.Min {
			return fmt.Sprintf("must be at least %g", *f.Min)
		}
		if f.Max != nil && n > *f.Max {
			return fmt.Sprintf("must be at most %g", *f.Max)
		}
		return ""
	}

	if f.Type == TypeBoolean {
		if _, ok := v.(bool); !ok {
			return fmt.Sprintf("must be a boolean, got %T", v)
		}
		return ""
	}

	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("must be a string, got %T", v)
	}
	if f.MaxLength > 0 && utf8.RuneCountInString(s) > f.MaxLength {
		return fmt.Sprintf("must be at most %d characters", f.MaxLength)
	}
	if f.Pattern != "" {
		re, err := regexp.Compile(f.Pattern)
		if err == nil && !re.MatchString(s) {
			return fmt.Sprintf("must match %s", f.Pattern)
		}
	}

	switch f.Type {
	case TypeColor:
		if !IsColor(s) {
			return fmt.Sprintf("invalid color %q", s)
		}
	case TypeSelect:
		if !f.HasOption(s) {
			return fmt.Sprintf("%q is not one of the allowed options", s)
		}
	case TypeURL, TypeImage:
		if s != "" && !isURL(s) {
			return fmt.Sprintf("invalid url %q", s)
		}
	case TypeEmail:
		if s != "" {
			if _, err := mail.ParseAddress(s); err != nil {
				return fmt.Sprintf("invalid email %q", s)
			}
		}
	}
	return ""
}

// isURL accepts absolute http(s)/mailto/tel URLs and site-relative paths.
func isURL(s string) bool {
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "#") {
		return true
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "mailto", "tel":
		return u.Opaque != "" || u.Path != ""
	}
	return false
}

// ToFloat converts the numeric types that JSON, YAML and Go code produce.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// Coerce converts an editor value, usually a string from a form input, to
// the Go type the field stores. Values already of the right type pass
// through. The result is validated against the field.
func Coerce(f Field, raw any) (any, error) {
	var out any = raw
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		switch f.Type {
		case TypeNumber:
			if s == "" {
				if f.Required {
					return nil, fmt.Errorf("%s is required", f.Name)
				}
				return nil, nil
			}
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %q is not a number", f.Name, s)
			}
			out = n
		case TypeBoolean:
			switch strings.ToLower(s) {
			case "true", "on", "1", "yes":
				out = true
			case "false", "off", "0", "no", "":
				out = false
			default:
				return nil, fmt.Errorf("%s: %q is not a boolean", f.Name, s)
			}
		case TypeColor:
			if IsHexColor(s) {
				out = strings.ToLower(s)
			} else {
				out = s
			}
		default:
			out = raw
		}
	} else if f.Type == TypeNumber {
		n, ok := ToFloat(raw)
		if !ok {
			return nil, fmt.Errorf("%s: %v is not a number", f.Name, raw)
		}
		out = n
	}

	if out == nil {
		return nil, nil
	}
	if msg := checkValue(f, out); msg != "" {
		if str, ok := out.(string); ok && str == "" && !f.Required {
			return out, nil
		}
		return nil, fmt.Errorf("%s %s", f.Name, msg)
	}
	return out, nil
}
