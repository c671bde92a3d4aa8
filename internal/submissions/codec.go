package submissions

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errCorruptValue = errors.New("submissions: stored value is not a submission list")

// decodeList parses the durable value. Absent or blank values decode to an
// empty list; anything unparsable also yields an empty list together with
// errCorruptValue so the caller can log it.
func decodeList(raw string, found bool) ([]Submission, error) {
	if !found || strings.TrimSpace(raw) == "" {
		return []Submission{}, nil
	}
	var list []Submission
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return []Submission{}, fmt.Errorf("%w: %v", errCorruptValue, err)
	}
	if list == nil {
		return []Submission{}, nil
	}
	return list, nil
}

func encodeList(list []Submission) (string, error) {
	if list == nil {
		list = []Submission{}
	}
	encoded, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
