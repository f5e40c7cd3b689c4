package fetcher

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

var (
	reTvgName   = regexp.MustCompile(`tvg-name="([^"]*)"`)
	reTvgID     = regexp.MustCompile(`tvg-id="([^"]*)"`)
	reTvgLogo   = regexp.MustCompile(`tvg-logo="([^"]*)"`)
	reGroup     = regexp.MustCompile(`group-title="([^"]*)"`)
	reCommaName = regexp.MustCompile(`,([^\n\r\t]*)`)
)

// ParseM3U reads an M3U playlist from r and returns stream entries.
// useTvgID: if true, prefer tvg-id over comma-alt for the stream name when
// tvg-name is empty.
func ParseM3U(r io.Reader, useTvgID bool) ([]StreamEntry, error) {
	var entries []StreamEntry
	scanner := bufio.NewScanner(r)
	// Handle long lines (some M3U have very long EXTINF lines).
	const maxSize = 1024 * 1024
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxSize)

	var extinfLine string

	for scanner.Scan() {
		line := scanner.Text()
		lineUpper := strings.ToUpper(line)
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(lineUpper, "#EXTINF"):
			// Previous EXTINF without URL is skipped (malformed)
			extinfLine = line
		case strings.HasPrefix(trimmed, "#"):
			// Other directives (EXTVLCOPT etc.) are ignored.
		case trimmed != "":
			// URL line
			if extinfLine == "" {
				continue
			}
			name, err := streamNameFromEXTINF(extinfLine, useTvgID)
			if err != nil {
				extinfLine = ""
				continue
			}
			entries = append(entries, StreamEntry{
				Name:  strings.TrimSpace(name),
				URL:   trimmed,
				Group: matchFirstPtr(reGroup, extinfLine),
				Logo:  matchFirstPtr(reTvgLogo, extinfLine),
			})
			extinfLine = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func matchFirst(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	v := strings.TrimSpace(m[1])
	if v == "" {
		return ""
	}
	return v
}

func matchFirstPtr(re *regexp.Regexp, s string) *string {
	v := matchFirst(re, s)
	if v == "" {
		return nil
	}
	return &v
}

// streamNameFromEXTINF extracts the stream name: tvg-name, or (per useTvgID)
// tvg-id or comma-alt.
func streamNameFromEXTINF(extinf string, useTvgID bool) (string, error) {
	if n := matchFirst(reTvgName, extinf); n != "" {
		return n, nil
	}
	id := matchFirst(reTvgID, extinf)
	alt := matchFirst(reCommaName, extinf)
	if useTvgID {
		if id != "" {
			return id, nil
		}
		if alt != "" {
			return alt, nil
		}
	} else {
		if alt != "" {
			return alt, nil
		}
		if id != "" {
			return id, nil
		}
	}
	return "", errNoName
}

var errNoName = &parseError{msg: "no name from EXTINF"}

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }
