package session

import (
	"slices"

	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/types"
)

// Reduce returns the session that results from applying ev to s and whether
// anything changed. s is never mutated. When nothing changes s itself is
// returned. A nil session, an event for another file, and page_complete (which
// only concerns the artifact cache) all leave the session untouched.
func Reduce(s *types.ProcessingSession, ev types.Event) (*types.ProcessingSession, bool) {
	if s == nil || ev == nil {
		return s, false
	}
	if target := ev.Target(); target != "" && target != s.FileID {
		return s, false
	}

	switch e := ev.(type) {
	case types.ProgressEvent:
		return reduceProgress(s, e)
	case types.BatchCompleteEvent:
		return reduceBatchComplete(s, e)
	case types.StatusEvent:
		return reduceStatus(s, e)
	case types.ErrorEvent:
		return reduceError(s, e)
	default:
		return s, false
	}
}

func reduceProgress(s *types.ProcessingSession, e types.ProgressEvent) (*types.ProcessingSession, bool) {
	if e.CurrentPage < 1 || e.CurrentPage > s.TotalPages {
		return s, false
	}

	addPage := !s.HasPage(e.CurrentPage)
	idx := s.BatchFor(e.CurrentPage)
	addBatchPage := idx >= 0 && !slices.Contains(s.Batches[idx].CompletedPages, e.CurrentPage)
	moveBatch := e.BatchNumber > s.CurrentBatch && e.BatchNumber <= s.TotalBatches

	if !addPage && !addBatchPage && !moveBatch {
		return s, false
	}

	next := s.Clone()
	if addPage {
		next.CompletedPages = append(next.CompletedPages, e.CurrentPage)
		slices.Sort(next.CompletedPages)
	}
	if addBatchPage {
		b := &next.Batches[idx]
		b.CompletedPages = append(b.CompletedPages, e.CurrentPage)
		slices.Sort(b.CompletedPages)
	}
	if moveBatch {
		next.CurrentBatch = e.BatchNumber
	}
	return next, true
}

func reduceBatchComplete(s *types.ProcessingSession, e types.BatchCompleteEvent) (*types.ProcessingSession, bool) {
	idx := s.BatchIndex(e.BatchNumber)
	if idx < 0 || s.Batches[idx].Status == types.BatchCompleted {
		return s, false
	}

	next := s.Clone()
	next.Batches[idx].Status = types.BatchCompleted
	return next, true
}

func reduceStatus(s *types.ProcessingSession, e types.StatusEvent) (*types.ProcessingSession, bool) {
	if !types.CanTransition(s.Status, e.Status) {
		return s, false
	}

	setMessage := e.Message != "" && (s.ErrorMessage == nil || *s.ErrorMessage != e.Message)
	if e.Status == s.Status && !setMessage {
		return s, false
	}

	next := s.Clone()
	next.Status = e.Status
	if setMessage {
		msg := e.Message
		next.ErrorMessage = &msg
	}
	return next, true
}

func reduceError(s *types.ProcessingSession, e types.ErrorEvent) (*types.ProcessingSession, bool) {
	if s.Status == types.StatusError && s.ErrorMessage != nil && *s.ErrorMessage == e.Error {
		return s, false
	}

	next := s.Clone()
	next.Status = types.StatusError
	msg := e.Error
	next.ErrorMessage = &msg
	return next, true
}
