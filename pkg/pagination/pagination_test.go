package pagination

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestSize(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{7, 7},
		{MaxLimit + 1, MaxLimit},
	}
	for _, tt := range tests {
		if got := (Params{Limit: tt.limit}).Size(); got != tt.want {
			t.Fatalf("Size(%d) = %d, want %d", tt.limit, got, tt.want)
		}
	}
}

func TestCursorEncodeDecode(t *testing.T) {
	in := Cursor{
		CreatedAt: time.Date(2026, 4, 2, 11, 30, 0, 123, time.FixedZone("BST", 3600)),
		ID:        "Q20260402_103000_01_ab12cd",
	}
	token := in.Encode()
	if strings.Contains(token, "=") {
		t.Fatalf("token %q is padded", token)
	}

	out, err := Decode(" " + token + " ")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out == nil {
		t.Fatal("Decode returned nil cursor")
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.ID != in.ID {
		t.Fatalf("cursor = %+v, want %+v", *out, in)
	}
}

func TestDecodeBlankIsFirstPage(t *testing.T) {
	c, err := Decode("  ")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c != nil {
		t.Fatalf("cursor = %+v, want nil", *c)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	// "!!!" is not base64, "bm9waXBl" is "nopipe", the last is {"id":""}.
	for _, raw := range []string{"!!!", "bm9waXBl", "eyJpZCI6IiJ9"} {
		if _, err := Decode(raw); !errors.Is(err, ErrBadCursor) {
			t.Fatalf("Decode(%q) err = %v, want ErrBadCursor", raw, err)
		}
	}
}

func TestSplit(t *testing.T) {
	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	key := func(i int) Cursor { return Cursor{CreatedAt: base.Add(-time.Duration(i) * time.Minute), ID: string(rune('a' + i))} }

	page, next := Split([]int{0, 1, 2}, 2, key)
	if !slices.Equal(page, []int{0, 1}) {
		t.Fatalf("page = %v", page)
	}
	c, err := Decode(next)
	if err != nil {
		t.Fatalf("Decode(next): %v", err)
	}
	if c == nil || c.ID != "b" {
		t.Fatalf("next cursor = %+v", c)
	}

	page, next = Split([]int{0, 1}, 2, key)
	if !slices.Equal(page, []int{0, 1}) {
		t.Fatalf("page = %v", page)
	}
	if next != "" {
		t.Fatalf("next = %q on last page", next)
	}
}
