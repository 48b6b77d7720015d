package domain_test

import (
	"fmt"
	"testing"

	"worktrack/internal/modules/tasks/domain"
)

func numbered(n int) []domain.Task {
	out := make([]domain.Task, n)
	for i := range out {
		out[i] = domain.Task{ID: fmt.Sprintf("t%d", i+1)}
	}
	return out
}

func TestPaginateSecondPartialPage(t *testing.T) {
	t.Parallel()
	w := domain.Paginate(numbered(45), 2, domain.PageSize, false, false)
	if len(w.Items) != 15 || w.Items[0].ID != "t31" || w.Items[14].ID != "t45" {
		t.Fatalf("page 2 should hold items 31-45, got %d items", len(w.Items))
	}
	if w.CanGoNext || !w.CanGoPrev || w.NeedsFetch {
		t.Fatalf("unexpected flags: %+v", w)
	}
	if w.RangeLabel != "31-45 / 45件" {
		t.Fatalf("label = %q", w.RangeLabel)
	}
}

func TestPaginateOutOfRange(t *testing.T) {
	t.Parallel()
	w := domain.Paginate(numbered(45), 3, domain.PageSize, false, false)
	if len(w.Items) != 0 || w.CanGoNext {
		t.Fatalf("page 3 should be empty without next: %+v", w)
	}
	if !w.Empty || w.Loading || w.RangeLabel != "0件" {
		t.Fatalf("expected definitive empty: %+v", w)
	}

	w = domain.Paginate(numbered(5), 0, domain.PageSize, false, false)
	if len(w.Items) != 0 || w.CanGoPrev {
		t.Fatalf("page 0 should be empty: %+v", w)
	}
	w = domain.Paginate(numbered(5), -4, domain.PageSize, true, false)
	if len(w.Items) != 0 || !w.Loading {
		t.Fatalf("negative page should not panic: %+v", w)
	}
}

func TestPaginateDemandDrivenFetch(t *testing.T) {
	t.Parallel()
	w := domain.Paginate(numbered(30), 2, domain.PageSize, true, false)
	if !w.NeedsFetch || !w.Loading || w.Empty {
		t.Fatalf("expected fetch while loading: %+v", w)
	}
	if w.RangeLabel != "読み込み中…" {
		t.Fatalf("label = %q", w.RangeLabel)
	}

	w = domain.Paginate(numbered(30), 2, domain.PageSize, true, true)
	if w.NeedsFetch {
		t.Fatalf("must not request while a fetch is in flight")
	}

	w = domain.Paginate(numbered(60), 2, domain.PageSize, true, false)
	if w.NeedsFetch || !w.CanGoNext {
		t.Fatalf("page already covered: %+v", w)
	}
	if w.RangeLabel != "31-60 / 60+件" {
		t.Fatalf("label = %q", w.RangeLabel)
	}
}

func TestPaginateCanGoNextFromKnownData(t *testing.T) {
	t.Parallel()
	w := domain.Paginate(numbered(31), 1, domain.PageSize, false, false)
	if !w.CanGoNext || w.CanGoPrev {
		t.Fatalf("31 known items span two pages: %+v", w)
	}
}

func TestPaginateEmptyResult(t *testing.T) {
	t.Parallel()
	w := domain.Paginate(nil, 1, 0, false, false)
	if !w.Empty || w.PageSize != domain.PageSize || w.RangeLabel != "0件" {
		t.Fatalf("empty: %+v", w)
	}
}
