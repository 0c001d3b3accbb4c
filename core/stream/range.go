package stream

import (
	"strconv"
	"strings"
)

// ParseRange parses a single-range Range header ("bytes=<start>-<end>")
// against the given file size. An omitted start means 0, an omitted end
// means size-1. Multi-range forms, non-numeric offsets and ranges that do
// not select any byte of the file report ok=false; the caller then falls
// back to full-file semantics instead of erroring, which also means the
// response is a plain 200 rather than a partial-content one.
func ParseRange(header string, size int64) (start, end int64, ok bool) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return 0, 0, false
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}

	start, end = 0, size-1
	var err error
	if parts[0] != "" {
		if start, err = strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64); err != nil {
			return 0, 0, false
		}
	}
	if parts[1] != "" {
		if end, err = strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64); err != nil {
			return 0, 0, false
		}
	}

	if end >= size {
		end = size - 1
	}
	if start < 0 || start >= size || start > end {
		return 0, 0, false
	}
	return start, end, true
}
