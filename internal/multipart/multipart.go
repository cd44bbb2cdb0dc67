// Package multipart decodes buffered multipart/form-data bodies into named
// parts. It scans raw byte offsets rather than decoded text, so binary
// payloads survive intact, and it deliberately implements only the header
// subset the upload endpoints need (no folded headers, no nested quotes).
package multipart

import (
	"bytes"
	"errors"
	"strings"
)

// ErrBoundaryNotFound reports a body that never contains the delimiter.
// A nil error with an empty part list means the framing was valid but no
// named parts were submitted; the two outcomes are distinct on purpose.
var ErrBoundaryNotFound = errors.New("multipart boundary not found in body")

// Part is one decoded form field or file upload. Data aliases the request
// body buffer and is only valid for the lifetime of the request.
type Part struct {
	Name        string
	Filename    string
	ContentType string
	Data        []byte
}

var (
	crlf      = []byte("\r\n")
	headerSep = []byte("\r\n\r\n")
)

// Parse splits body on "--boundary" delimiter lines. Bytes before the first
// delimiter are preamble and skipped; the scan stops at the closing
// "--boundary--". Parts lacking a name attribute are dropped. No size
// limiting happens here; callers cap the body before buffering it.
func Parse(body []byte, boundary string) ([]Part, error) {
	delim := []byte("--" + boundary)

	pos := bytes.Index(body, delim)
	if pos == -1 {
		return nil, ErrBoundaryNotFound
	}

	parts := []Part{}
	for {
		segStart := pos + len(delim)
		rest := body[segStart:]

		// Closing delimiter ends the scan.
		if bytes.HasPrefix(rest, []byte("--")) {
			break
		}
		if bytes.HasPrefix(rest, crlf) {
			segStart += len(crlf)
		}

		next := bytes.Index(body[segStart:], delim)
		if next == -1 {
			break
		}
		segEnd := segStart + next

		// The part's raw segment ends just before the CRLF that precedes
		// the next delimiter line.
		raw := bytes.TrimSuffix(body[segStart:segEnd], crlf)
		if part, ok := parsePart(raw); ok {
			parts = append(parts, part)
		}

		pos = segEnd
	}

	return parts, nil
}

func parsePart(raw []byte) (Part, bool) {
	headerEnd := bytes.Index(raw, headerSep)
	if headerEnd == -1 {
		return Part{}, false
	}

	header := string(raw[:headerEnd])
	data := raw[headerEnd+len(headerSep):]

	name, ok := quotedAttr(header, `name="`)
	if !ok {
		return Part{}, false
	}

	part := Part{Name: name, Data: data}
	if filename, ok := quotedAttr(header, `filename="`); ok {
		part.Filename = filename
	}
	if ct, ok := headerValue(header, "Content-Type: "); ok {
		part.ContentType = ct
	}
	return part, true
}

// quotedAttr extracts a double-quoted attribute value by literal prefix
// match. Empty values count as absent.
func quotedAttr(header, prefix string) (string, bool) {
	start := indexAfter(header, prefix)
	if start == -1 {
		return "", false
	}
	end := start
	for end < len(header) && header[end] != '"' {
		end++
	}
	if end == start || end == len(header) {
		return "", false
	}
	return header[start:end], true
}

func headerValue(header, prefix string) (string, bool) {
	start := indexAfter(header, prefix)
	if start == -1 {
		return "", false
	}
	end := start
	for end < len(header) && header[end] != '\r' && header[end] != '\n' {
		end++
	}
	if end == start {
		return "", false
	}
	return header[start:end], true
}

func indexAfter(s, prefix string) int {
	i := strings.Index(s, prefix)
	if i == -1 {
		return -1
	}
	return i + len(prefix)
}
