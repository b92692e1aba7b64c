package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/blackwell-systems/sessionlens/internal/session"
)

// readRawRecords loads raw session records from a JSON file. The file may
// hold an array of records, an object with a "sessions" array (a saved
// analyze --output document), or a single record.
func readRawRecords(path string) ([]session.Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: empty input", path)
	}

	switch data[0] {
	case '[':
		var raws []session.Raw
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		return raws, nil
	case '{':
		var doc struct {
			Sessions []session.Raw `json:"sessions"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		if doc.Sessions != nil {
			return doc.Sessions, nil
		}
		var raw session.Raw
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		return []session.Raw{raw}, nil
	}
	return nil, errors.New(path + ": expected a JSON array or object")
}
