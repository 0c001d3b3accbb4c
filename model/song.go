package model

import "strings"

// Song represents one entry in the music catalog. The JSON field names are
// shared between the persisted catalog document and the API responses.
type Song struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Comment  string `json:"comment"`
	Filename string `json:"filename"` // on-disk name: <id><ext>
	Ext      string `json:"ext"`      // lowercase, includes the leading dot
	Size     int64  `json:"size"`     // exact file size in bytes at upload
	Uploaded string `json:"uploaded"` // UTC, RFC 3339
}

// Placeholders substituted when the upload form leaves a field empty.
const (
	DefaultTitle  = "Unknown Title"
	DefaultArtist = "Unknown Artist"
)

// allowedExtensions is the fixed set of playable formats. Besides the
// common audio containers it covers tracker modules and console sound
// formats, plus the raw-sample .fc format that is transcoded on the fly.
var allowedExtensions = map[string]struct{}{
	".mp3": {}, ".ogg": {}, ".wav": {}, ".flac": {},
	".mod": {}, ".xm": {}, ".s3m": {}, ".it": {},
	".nsf": {}, ".spc": {}, ".gbs": {}, ".vgm": {}, ".vgz": {},
	".fc": {},
}

// IsAllowedExtension reports whether ext (with leading dot, any case) is
// one of the playable formats.
func IsAllowedExtension(ext string) bool {
	_, ok := allowedExtensions[strings.ToLower(ext)]
	return ok
}

// RawSampleExt is the proprietary raw-sample format that gets a WAVE
// header synthesized in front of it when streamed.
const RawSampleExt = ".fc"
