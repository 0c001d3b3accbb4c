// Package multipart implements a minimal multipart/form-data decoder for
// upload request bodies. It is a pure transformation from (body bytes,
// boundary token) to text fields plus at most one file payload: no I/O, no
// state, so it stays independently testable.
package multipart

import (
	"bytes"
	"strings"
)

// Form is the decoded content of a multipart/form-data body.
type Form struct {
	Fields   map[string]string // last occurrence wins for repeated names
	FileData []byte            // raw bytes of the first file part, nil if none
	FileName string            // declared file name of the first file part
}

// HasFile reports whether the body carried a file part.
func (f *Form) HasFile() bool {
	return f.FileData != nil && f.FileName != ""
}

var (
	crlf       = []byte("\r\n")
	doubleCRLF = []byte("\r\n\r\n")
)

// Decode splits body on the boundary delimiter ("--" + token) and extracts
// text fields and at most one file part. Malformed parts (no blank-line
// separator between headers and content) are skipped, as are the empty
// fragment before the first delimiter and the terminal "--" marker. The
// body is scanned forward once; parts are never materialized twice.
func Decode(body []byte, boundary string) *Form {
	form := &Form{Fields: make(map[string]string)}
	delimiter := []byte("--" + boundary)

	idx := bytes.Index(body, delimiter)
	if idx < 0 {
		return form
	}
	rest := body[idx+len(delimiter):]

	for {
		next := bytes.Index(rest, delimiter)
		if next < 0 {
			decodePart(form, rest)
			return form
		}
		decodePart(form, rest[:next])
		rest = rest[next+len(delimiter):]
	}
}

// decodePart handles one boundary-delimited fragment. A part whose
// Content-Disposition carries a filename is the file payload (first one
// wins, later ones are dropped); a part with only a name becomes a text
// field.
func decodePart(form *Form, part []byte) {
	part = bytes.TrimPrefix(part, crlf)

	sep := bytes.Index(part, doubleCRLF)
	if sep < 0 {
		// Covers empty fragments, the closing "--" marker and parts with
		// no header/content separator.
		return
	}
	headersRaw := part[:sep]
	content := trimContentTail(part[sep+len(doubleCRLF):])

	name, filename := parseDisposition(headersRaw)
	switch {
	case filename != "":
		if !form.HasFile() {
			form.FileData = content
			form.FileName = filename
		}
	case name != "":
		// Text fields use a replacement policy for invalid byte sequences
		// instead of failing the whole parse.
		form.Fields[name] = strings.ToValidUTF8(string(content), "�")
	}
}

// trimContentTail strips the trailing CRLF and/or closing "--" marker that
// the boundary split leaves attached to the part content.
func trimContentTail(content []byte) []byte {
	content = bytes.TrimSuffix(content, crlf)
	content = bytes.TrimSuffix(content, []byte("--"))
	content = bytes.TrimSuffix(content, crlf)
	return content
}

// parseDisposition extracts the name and optional filename attributes from
// a part's Content-Disposition header line.
func parseDisposition(headersRaw []byte) (name, filename string) {
	headersText := strings.ToValidUTF8(string(headersRaw), "�")

	var disposition string
	for _, line := range strings.Split(headersText, "\r\n") {
		if strings.HasPrefix(strings.ToLower(line), "content-disposition") {
			disposition = line
			break
		}
	}

	for _, seg := range strings.Split(disposition, ";") {
		seg = strings.TrimSpace(seg)
		if v, ok := strings.CutPrefix(seg, "name="); ok {
			name = strings.Trim(v, `"`)
		} else if v, ok := strings.CutPrefix(seg, "filename="); ok {
			filename = strings.Trim(v, `"`)
		}
	}
	return name, filename
}
