package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringArray represents a PostgreSQL text[] type
type StringArray []string

// Scan implements the sql.Scanner interface
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		result, err := parseArrayLiteral(v)
		if err != nil {
			return err
		}
		*s = result
		return nil
	case []byte:
		var arr []string
		if err := json.Unmarshal(v, &arr); err == nil {
			*s = arr
			return nil
		}
		return s.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
}

// Value implements the driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}

	quoted := make([]string, len(s))
	for i, v := range s {
		escaped := strings.ReplaceAll(v, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `"`, `\"`)
		quoted[i] = fmt.Sprintf("\"%s\"", escaped)
	}

	return fmt.Sprintf("{%s}", strings.Join(quoted, ",")), nil
}

// parseArrayLiteral reads a one-dimensional PostgreSQL array literal such as
// {plain,"with space","quote \" and \\ backslash"}. Unquoted NULL elements
// are skipped.
func parseArrayLiteral(literal string) (StringArray, error) {
	literal = strings.TrimSpace(literal)
	if len(literal) < 2 || literal[0] != '{' || literal[len(literal)-1] != '}' {
		return nil, fmt.Errorf("invalid array literal %q", literal)
	}
	body := literal[1 : len(literal)-1]

	result := StringArray{}
	if strings.TrimSpace(body) == "" {
		return result, nil
	}

	var elem strings.Builder
	quoted, inQuotes, escaped := false, false, false

	flush := func() {
		raw := elem.String()
		if !quoted {
			raw = strings.TrimSpace(raw)
			if strings.EqualFold(raw, "NULL") {
				elem.Reset()
				return
			}
		}
		result = append(result, raw)
		elem.Reset()
		quoted = false
	}

	for _, r := range body {
		switch {
		case escaped:
			elem.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			if !inQuotes && !quoted {
				// drop whitespace before an opening quote
				elem.Reset()
			}
			inQuotes = !inQuotes
			quoted = true
		case r == ',' && !inQuotes:
			flush()
		default:
			if quoted && !inQuotes {
				// whitespace after a closing quote
				continue
			}
			elem.WriteRune(r)
		}
	}
	if inQuotes || escaped {
		return nil, fmt.Errorf("unterminated array literal %q", literal)
	}
	flush()

	return result, nil
}

// MarshalJSON keeps an empty category list as [] rather than null in the artifact.
func (s StringArray) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}
