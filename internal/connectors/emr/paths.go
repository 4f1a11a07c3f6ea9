package emr

import (
	"net/url"
	"strings"
)

// downloadRoute is the fixed host-relative route export artifacts are served
// from.
const downloadRoute = "/openmrs/downloads/NDR/"

// ToDownloadURL converts a server-reported filesystem path into a browser
// downloadable URL under the fixed download route. The backend reports paths
// with platform-ambiguous separators (usually Windows backslashes); only the
// final segment survives, URL-encoded. An empty input yields an empty string.
func ToDownloadURL(origin, filePath string) string {
	if filePath == "" {
		return ""
	}

	normalized := strings.ReplaceAll(filePath, `\`, "/")
	filename := normalized
	if i := strings.LastIndexByte(normalized, '/'); i >= 0 {
		filename = normalized[i+1:]
	}

	return origin + downloadRoute + url.PathEscape(filename)
}
