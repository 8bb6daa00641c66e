package sensor

import (
	"strconv"

	"github.com/goccy/go-json"
)

// SessionID is the session name carried by every measurement. Numeric
// session names are written as JSON numbers, anything else as a string.
type SessionID string

func (s SessionID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(s), 10, 64); err == nil {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(s))
}

func (s *SessionID) UnmarshalJSON(data []byte) error {
	var v json.Number
	if err := json.Unmarshal(data, &v); err == nil {
		*s = SessionID(v.String())
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = SessionID(str)
	return nil
}
