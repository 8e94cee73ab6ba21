package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
)

// Format is an output format for a code list.
type Format string

const (
	JSON Format = "json"
	Text Format = "txt"
	CSV  Format = "csv"
)

// ParseFormat maps a query value to a Format; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return JSON, nil
	case JSON, Text, CSV:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use json, txt or csv)", s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case Text:
		return "text/plain; charset=utf-8"
	case CSV:
		return "text/csv; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

// Filename is the download name offered for f.
func (f Format) Filename() string {
	return "extracted_codes." + string(f)
}

// Render writes codes in format f. JSON output is {"codes": [...]}.
func Render(f Format, codes []string) ([]byte, error) {
	switch f {
	case JSON:
		if codes == nil {
			codes = []string{}
		}
		return json.Marshal(struct {
			Codes []string `json:"codes"`
		}{codes})
	case Text:
		return []byte(strings.Join(codes, "\n")), nil
	case CSV:
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write([]string{"Code"}); err != nil {
			return nil, err
		}
		for _, c := range codes {
			if err := w.Write([]string{c}); err != nil {
				return nil, err
			}
		}
		w.Flush()
		return buf.Bytes(), w.Error()
	}
	return nil, fmt.Errorf("render: unsupported format %q", f)
}
