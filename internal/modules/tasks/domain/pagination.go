package domain

import "fmt"

const PageSize = 30

type Window struct {
	Page       int
	PageSize   int
	Items      []Task
	CanGoNext  bool
	CanGoPrev  bool
	NeedsFetch bool
	Loading    bool
	Empty      bool
	Known      int
	HasMore    bool
	RangeLabel string
}

// Paginate slices the known tasks for page (1-based). Out-of-range pages give
// an empty slice. NeedsFetch asks the caller for another batch when the known
// tasks do not reach the end of the page yet.
func Paginate(sorted []Task, page, pageSize int, hasNext, fetching bool) Window {
	if pageSize <= 0 {
		pageSize = PageSize
	}
	known := len(sorted)
	w := Window{
		Page:      page,
		PageSize:  pageSize,
		Known:     known,
		HasMore:   hasNext,
		CanGoPrev: page > 1,
	}
	if page < 1 {
		w.Empty = !hasNext && !fetching
		w.Loading = !w.Empty
		w.RangeLabel = rangeLabel(w, 0, 0)
		return w
	}

	required := page * pageSize
	w.NeedsFetch = hasNext && known < required && !fetching
	w.CanGoNext = hasNext || known > required

	from := (page - 1) * pageSize
	to := min(required, known)
	if from < to {
		w.Items = sorted[from:to:to]
	} else {
		w.Items = []Task{}
	}
	if len(w.Items) == 0 {
		w.Loading = hasNext || fetching
		w.Empty = !w.Loading
	}
	w.RangeLabel = rangeLabel(w, from, to)
	return w
}

func rangeLabel(w Window, from, to int) string {
	switch {
	case w.Loading:
		return "読み込み中…"
	case w.Empty:
		return "0件"
	}
	suffix := ""
	if w.HasMore {
		suffix = "+"
	}
	return fmt.Sprintf("%d-%d / %d%s件", from+1, to, w.Known, suffix)
}
