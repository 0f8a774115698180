package artifacts

import (
	"net/url"
	"strconv"
	"strings"
)

// Locator derives artifact URLs from a backend base URL
type Locator struct {
	base string
}

// NewLocator creates a locator rooted at base (for example http://127.0.0.1:8765)
func NewLocator(base string) Locator {
	return Locator{base: strings.TrimRight(base, "/")}
}

// Location returns the colorized page URL
func (l Locator) Location(fileID string, page int) string {
	return l.join("image", fileID, page)
}

// OriginalLocation returns the source page URL
func (l Locator) OriginalLocation(fileID string, page int) string {
	return l.join("original", fileID, page)
}

func (l Locator) join(kind, fileID string, page int) string {
	return l.base + "/api/" + kind + "/" + url.PathEscape(fileID) + "/" + strconv.Itoa(page)
}
