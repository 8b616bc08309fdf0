// internal/domain/schedule/entry.go
package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Entry is one showtime record returned by the schedule search API.
type Entry struct {
	MovieName  string    `json:"movNm"`
	SiteName   string    `json:"siteNm"`
	ScreenName string    `json:"expoScnsNm"` // e.g. "IMAX관", used for grouping
	StartTime  string    `json:"scnsrtTm"`   // HHMM
	FreeSeats  SeatCount `json:"frSeatCnt"`
	TotalSeats SeatCount `json:"stcnt"`
	ScreenType string    `json:"movkndDsplNm"` // e.g. "2D", "IMAX LASER 2D"
}

// PollResult is the decoded body of one schedule search response.
type PollResult struct {
	StatusCode    StatusCode `json:"statusCode"`
	StatusMessage string     `json:"statusMessage"`
	Entries       []Entry    `json:"data"`
}

// FormatTime renders an HHMM start time as HH:MM.
// Anything that is not exactly four characters is returned unchanged.
func FormatTime(raw string) string {
	if len(raw) != 4 {
		return raw
	}
	return raw[:2] + ":" + raw[2:]
}

// Summary is the one-line form used in console logs.
func (e Entry) Summary() string {
	t := e.StartTime
	if t == "" {
		t = "?"
	}
	screen := e.ScreenName
	if screen == "" {
		screen = "?"
	}
	return fmt.Sprintf("%s @ %s", FormatTime(t), screen)
}

// SeatCount is a seat figure that the API sends either as a number or as a
// numeric string. A missing value renders as "?". Anything else is kept
// verbatim in Raw so an odd value never fails the whole response.
type SeatCount struct {
	Value int
	Valid bool
	Raw   string
}

func (s *SeatCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = SeatCount{}
		return nil
	}

	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if str == "" {
			*s = SeatCount{}
			return nil
		}
		if n, err := strconv.Atoi(str); err == nil {
			*s = SeatCount{Value: n, Valid: true}
		} else {
			*s = SeatCount{Raw: str}
		}
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		*s = SeatCount{Raw: string(data)}
		return nil
	}
	*s = SeatCount{Value: n, Valid: true}
	return nil
}

func (s SeatCount) MarshalJSON() ([]byte, error) {
	switch {
	case s.Valid:
		return []byte(strconv.Itoa(s.Value)), nil
	case s.Raw != "":
		return json.Marshal(s.Raw)
	default:
		return []byte("null"), nil
	}
}

func (s SeatCount) String() string {
	switch {
	case s.Valid:
		return strconv.Itoa(s.Value)
	case s.Raw != "":
		return s.Raw
	default:
		return "?"
	}
}

// StatusCode is the API's own status field. It has been seen both as a number
// and as a string, so it is kept as text.
type StatusCode string

func (c *StatusCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*c = StatusCode(str)
		return nil
	}
	*c = StatusCode(data)
	return nil
}
