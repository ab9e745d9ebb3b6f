package delay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// jsonlHeader is the first line of an Archive written as JSONL
type jsonlHeader struct {
	Type    string `json:"type"`
	Version string `json:"version"`
	Clock   Tick   `json:"clock"`
	Count   int    `json:"count"`
}

const (
	jsonlHeaderType = "header"
	jsonlVersion    = "1"
)

// ErrUnsupportedVersion indicates a JSONL archive from a newer format
var ErrUnsupportedVersion = errors.New("unsupported archive version")

// WriteJSONL writes the Archive as a header line followed by one record
// per line
func WriteJSONL(w io.Writer, a *Archive) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(jsonlHeader{
		Type:    jsonlHeaderType,
		Version: jsonlVersion,
		Clock:   a.Clock,
		Count:   len(a.Records),
	}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, rec := range a.Records {
		var buf bytes.Buffer
		if err := json.Compact(&buf, rec); err != nil {
			// keep the raw bytes on a single line; Import decides
			buf.Reset()
			buf.Write(bytes.ReplaceAll(rec, []byte("\n"), []byte(" ")))
		}
		buf.WriteByte('\n')
		if _, err := w.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	return nil
}

// ReadJSONL reads an Archive written by WriteJSONL. A missing header yields
// a zero clock. Lines are returned raw, so a corrupt record line does not
// prevent the rest of the archive from loading
func ReadJSONL(r io.Reader) (*Archive, error) {
	res := emptyArchive()
	br := bufio.NewReader(r)

	first := true
	for {
		raw, err := br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read archive: %w", err)
		}
		line := bytes.TrimSpace(raw)
		switch {
		case len(line) == 0:
		case first:
			first = false
			if h, ok := parseHeader(line); ok {
				if h.Version != jsonlVersion {
					return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion,
						h.Version)
				}
				res.Clock = h.Clock
				break
			}
			res.Records = append(res.Records, bytes.Clone(line))
		default:
			res.Records = append(res.Records, bytes.Clone(line))
		}
		if err != nil {
			return res, nil
		}
	}
}

func parseHeader(line []byte) (*jsonlHeader, bool) {
	var h jsonlHeader
	if err := json.Unmarshal(line, &h); err != nil {
		return nil, false
	}
	return &h, h.Type == jsonlHeaderType
}
