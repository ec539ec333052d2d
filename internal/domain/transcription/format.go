package transcription

import (
	"fmt"
	"strings"
)

const genericContentType = "application/octet-stream"

// Browsers and upload tools frequently send audio as octet-stream; the
// extension table recovers the real type in that case.
var extensionToMIME = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/m4a",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".webm": "audio/webm",
}

// ResolveContentType normalizes a declared audio content type against the
// allow-list. An empty or generic declared type falls back to the filename
// extension; parameters after ";" (e.g. "audio/webm;codecs=opus") are
// stripped before validation. Pure function of its inputs.
func ResolveContentType(declared, filename string, allowed []string) (string, error) {
	contentType := strings.TrimSpace(declared)

	if contentType == "" || contentType == genericContentType {
		lower := strings.ToLower(filename)
		for ext, mime := range extensionToMIME {
			if strings.HasSuffix(lower, ext) {
				contentType = mime
				break
			}
		}
		if contentType == "" {
			contentType = genericContentType
		}
	}

	base := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])

	if base != genericContentType && !containsFold(allowed, base) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, contentType)
	}

	return contentType, nil
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
