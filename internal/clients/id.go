package clients

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidClientID is returned for identifiers that are not positive integers
var ErrInvalidClientID = errors.New("invalid client id")

// ClientID is the canonical client identifier. Older data and callers send it
// as either a JSON number or a numeric string; both are accepted once at the
// boundary and compared as integers afterwards.
type ClientID int64

// ParseClientID parses a decimal client identifier
func ParseClientID(s string) (ClientID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClientID, s)
	}
	return ClientID(n), nil
}

func (id ClientID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// UnmarshalJSON accepts 42 and "42"
func (id *ClientID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseClientID(s)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidClientID, data)
	}
	parsed, err := ParseClientID(n.String())
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
