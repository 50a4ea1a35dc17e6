package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Parse reads element sets from r. Both the three-line form (name line
// first) and the bare two-line form are accepted, and may be mixed.
// Malformed entries are logged and skipped.
func Parse(r io.Reader, logger *slog.Logger) ([]Entry, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r\n\t "); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []Entry
	for i := 0; i < len(lines); {
		var name, line1, line2 string
		switch {
		case i+1 < len(lines) && isLine(lines[i], '1') && isLine(lines[i+1], '2'):
			line1, line2 = lines[i], lines[i+1]
			i += 2
		case i+2 < len(lines) && isLine(lines[i+1], '1') && isLine(lines[i+2], '2'):
			name, line1, line2 = strings.TrimSpace(lines[i]), lines[i+1], lines[i+2]
			// Some bulletins prefix names with "0 ".
			name = strings.TrimPrefix(name, "0 ")
			i += 3
		default:
			logger.Warn("skipping malformed TLE line", "line_index", i, "line", lines[i])
			i++
			continue
		}

		e, err := parseEntry(name, line1, line2)
		if err != nil {
			logger.Warn("skipping TLE entry", "name", name, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func isLine(s string, n byte) bool {
	return len(s) > 1 && s[0] == n && s[1] == ' '
}

func parseEntry(name, line1, line2 string) (Entry, error) {
	if len(line1) < 32 {
		return Entry{}, fmt.Errorf("line 1 too short (%d chars)", len(line1))
	}

	// Catalogue number, columns 3-7.
	noradStr := strings.TrimSpace(line1[2:7])
	noradID, err := strconv.Atoi(noradStr)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid NORAD ID %q: %w", noradStr, err)
	}
	if len(line2) >= 7 {
		if id2, err := strconv.Atoi(strings.TrimSpace(line2[2:7])); err == nil && id2 != noradID {
			return Entry{}, fmt.Errorf("line 2 NORAD ID %d does not match line 1 %d", id2, noradID)
		}
	}

	epoch, err := parseEpoch(strings.TrimSpace(line1[18:32]))
	if err != nil {
		return Entry{}, err
	}
	if name == "" {
		name = noradStr
	}
	return Entry{NORADID: noradID, Name: name, Epoch: epoch, Line1: line1, Line2: line2}, nil
}

// parseEpoch converts YYDDD.DDDDDDDD into a UTC time. Years 57-99 are 19xx.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch %q too short", s)
	}
	yy, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	day, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}
	if day < 1 || day >= 367 {
		return time.Time{}, fmt.Errorf("epoch day %g out of range", day)
	}

	year := 2000 + yy
	if yy >= 57 {
		year = 1900 + yy
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration((day - 1) * float64(24*time.Hour))), nil
}
