// Package airports maps ICAO codes to display names with a country flag.
package airports

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Directory resolves airport display names. The zero value knows no airports.
type Directory struct {
	names map[string]string
}

// Load reads a CSV with at least the columns icao, country_code and airport.
func Load(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("airports: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads airport metadata from r. Rows with a missing field or a
// country code that is not two letters are skipped.
func Parse(r io.Reader) (*Directory, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("airports: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"icao", "country_code", "airport"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("airports: missing column %q", name)
		}
	}

	d := &Directory{names: make(map[string]string)}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("airports: %w", err)
		}
		icao := strings.ToUpper(strings.TrimSpace(field(rec, col["icao"])))
		cc := strings.ToUpper(strings.TrimSpace(field(rec, col["country_code"])))
		name := strings.TrimSpace(field(rec, col["airport"]))
		if icao == "" || name == "" || !isCountryCode(cc) {
			continue
		}
		d.names[icao] = Flag(cc) + " " + icao + " - " + name
	}
	return d, nil
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

func isCountryCode(cc string) bool {
	return len(cc) == 2 && cc[0] >= 'A' && cc[0] <= 'Z' && cc[1] >= 'A' && cc[1] <= 'Z'
}

// Flag returns the emoji flag for a two-letter country code.
func Flag(cc string) string {
	const offset = 0x1F1E6 - 'A'
	return string([]rune{rune(cc[0]) + offset, rune(cc[1]) + offset})
}

// Display returns the decorated name for code, the bare code when unknown,
// or "N/A" when code is empty. Safe on a nil Directory.
func (d *Directory) Display(code string) string {
	if code == "" {
		return "N/A"
	}
	if d != nil {
		if name, ok := d.names[code]; ok {
			return name
		}
	}
	return code
}

// Len returns the number of known airports.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.names)
}
