package checkpoint

import "github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/types"

// Policy picks the file to offer for resumption from a listing
type Policy func(files []types.FileSummary) (types.FileSummary, bool)

// FirstResumable picks the first file in listing order with completed pages
// that has not finished
func FirstResumable(files []types.FileSummary) (types.FileSummary, bool) {
	for _, f := range files {
		if f.CompletedPages > 0 && f.Status != types.StatusCompleted {
			return f, true
		}
	}
	return types.FileSummary{}, false
}

// MostRecentlyUpdated picks the resumable file updated last
func MostRecentlyUpdated(files []types.FileSummary) (types.FileSummary, bool) {
	var best types.FileSummary
	found := false
	for _, f := range files {
		if f.CompletedPages == 0 || f.Status == types.StatusCompleted {
			continue
		}
		if !found || f.UpdatedAt > best.UpdatedAt {
			best, found = f, true
		}
	}
	return best, found
}
