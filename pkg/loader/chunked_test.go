package loader_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/loadwise/pageloader/internal/testutil"
	"github.com/loadwise/pageloader/pkg/loader"
	"github.com/loadwise/pageloader/pkg/paging"
)

func TestLoadChunked_FanOutReassemblesInOrder(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}
	remote := testutil.NewFakeRemote(items...)
	store := loader.NewSliceStore(make([]int, 25)...)

	l, err := loader.New[int](remote, store, loader.DefaultConfig(10))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer l.Close()

	page, err := l.LoadChunked(context.Background(), paging.Current, 10)
	if err != nil {
		t.Fatalf("LoadChunked failed: %v", err)
	}
	if len(page) != 25 {
		t.Fatalf("assembled page size = %d, want 25", len(page))
	}
	for i, v := range page {
		if v != i {
			t.Fatalf("page[%d] = %d, want %d: chunks must concatenate in index order", i, v, i)
		}
	}

	calls := remote.Calls()
	if len(calls) != 3 {
		t.Fatalf("fetch calls = %d, want 3 chunks", len(calls))
	}
	sort.Slice(calls, func(i, j int) bool { return calls[i].Skip < calls[j].Skip })
	want := []paging.Window{{Skip: 0, Take: 10}, {Skip: 10, Take: 10}, {Skip: 20, Take: 5}}
	for i, w := range want {
		if calls[i] != w {
			t.Fatalf("chunk windows = %v, want %v", calls, want)
		}
	}

	got := store.Items()
	for i, v := range got {
		if v != i {
			t.Fatalf("store[%d] = %d, want %d", i, v, i)
		}
	}
	if l.Loaded() != 25 {
		t.Fatalf("loaded = %d, want 25", l.Loaded())
	}
}

func TestLoadChunked_FitsDelegatesToPlainLoad(t *testing.T) {
	l, remote, _ := newLoader(t, 10, 30)

	if _, err := l.LoadChunked(context.Background(), paging.First, 100); err != nil {
		t.Fatalf("LoadChunked failed: %v", err)
	}
	if got := len(remote.Calls()); got != 1 {
		t.Fatalf("fetch calls = %d, want 1 (no fan-out)", got)
	}
}

func TestLoadChunked_FirstErrorWins(t *testing.T) {
	boom := errors.New("chunk exploded")
	source := loader.SourceFunc[int](func(_ context.Context, w paging.Window) ([]int, error) {
		if w.Skip >= 10 {
			return nil, boom
		}
		page := make([]int, w.Take)
		return page, nil
	})
	store := loader.NewSliceStore(make([]int, 25)...)

	l, err := loader.New[int](source, store, loader.DefaultConfig(10))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer l.Close()

	_, err = l.LoadChunked(context.Background(), paging.Current, 10)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the chunk error", err)
	}

	// No partial success: the store keeps its prior contents and the cursor
	// its prior progress.
	if store.Len() != 25 {
		t.Fatalf("store holds %d, want untouched 25", store.Len())
	}
	if l.Loaded() != 0 {
		t.Fatalf("loaded = %d, want 0", l.Loaded())
	}
}

func TestLoadChunked_NextGuardStillApplies(t *testing.T) {
	l, _, _ := newLoader(t, 10, 14)
	ctx := context.Background()

	if _, err := l.Load(ctx, paging.First); err != nil {
		t.Fatalf("Load(First) failed: %v", err)
	}
	if _, err := l.Load(ctx, paging.Next); err != nil {
		t.Fatalf("Load(Next) failed: %v", err)
	}

	if _, err := l.LoadChunked(ctx, paging.Next, 5); !errors.Is(err, loader.ErrDataLimitReached) {
		t.Fatalf("err = %v, want ErrDataLimitReached", err)
	}
}
