package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// FlexTime is a timestamp clients may send as an RFC3339 string or as epoch
// milliseconds, either as a number or a numeric string. Browsers tend to
// send Date.now() for share expiries. It is always written back as RFC3339
// in UTC.
type FlexTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (ft *FlexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		t, err := parseFlexTime(s)
		if err != nil {
			return err
		}
		ft.Time = t
		return nil
	}

	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("timestamp must be an RFC3339 string or epoch milliseconds, got %s", data)
	}
	ft.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

func parseFlexTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// MarshalJSON implements json.Marshaler.
func (ft FlexTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.UTC().Format(time.RFC3339))
}

// Schema documents both accepted forms.
func (ft FlexTime) Schema(_ huma.Registry) *huma.Schema {
	return &huma.Schema{
		Description: "RFC3339 timestamp or epoch milliseconds",
		OneOf: []*huma.Schema{
			{Type: huma.TypeString, Format: "date-time"},
			{Type: huma.TypeString, Pattern: "^[0-9]+$"},
			{Type: huma.TypeInteger},
		},
	}
}
