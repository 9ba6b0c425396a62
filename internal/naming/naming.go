// Package naming derives output file names for cover spreads.
package naming

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// DefaultName is used when the source has no usable name.
const DefaultName = "cover_Processed_File.pdf"

var (
	// export timestamps such as _20250612_101500 or _20250612_101500_3
	timestampSuffix = regexp.MustCompile(`(?i)(_\d{8}_\d{6}(_\d+)?)+\.pdf$`)
	pdfSuffix       = regexp.MustCompile(`(?i)\.pdf+$`)
)

// CoverName returns the name of the cover spread built from a source
// named name.
func CoverName(name string) string {
	name = base(name)
	if name == "" {
		return DefaultName
	}
	clean := timestampSuffix.ReplaceAllString(name, "")
	clean = pdfSuffix.ReplaceAllString(clean, "")
	clean = strings.TrimSpace(clean)
	return "cover_" + clean + ".pdf"
}

// RowName is the source name used for a spreadsheet row whose file has
// no name of its own.
func RowName(row string) string {
	return fmt.Sprintf("Processed_Row_%s.pdf", row)
}

// base drops any directory part a client sent and characters that
// cannot appear in a Content-Disposition filename.
func base(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' {
			return -1
		}
		return r
	}, name)
}
