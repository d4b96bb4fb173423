package draw

import (
	"reflect"
	"testing"
)

func TestSnakeDraftTwelveIntoThree(t *testing.T) {
	ranked := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	pools := SnakeDraft(ranked, 3)

	want := [][]int{
		{1, 6, 7, 12},
		{2, 5, 8, 11},
		{3, 4, 9, 10},
	}
	if !reflect.DeepEqual(pools, want) {
		t.Errorf("SnakeDraft = %v, want %v", pools, want)
	}
}

func TestSnakeDraftKeepsEveryoneOnce(t *testing.T) {
	ranked := []int{10, 20, 30, 40, 50, 60, 70, 80}
	pools := SnakeDraft(ranked, 4)

	seen := make(map[int]bool)
	total := 0
	for _, pool := range pools {
		for _, id := range pool {
			if seen[id] {
				t.Errorf("performer %d placed twice", id)
			}
			seen[id] = true
			total++
		}
	}
	if total != len(ranked) {
		t.Errorf("placed %d performers, want %d", total, len(ranked))
	}
}

func TestSnakeDraftTopSeedsSplit(t *testing.T) {
	// Два сильнейших не должны попасть в один пул.
	pools := SnakeDraft([]int{1, 2, 3, 4}, 2)
	for _, pool := range pools {
		has1, has2 := false, false
		for _, id := range pool {
			if id == 1 {
				has1 = true
			}
			if id == 2 {
				has2 = true
			}
		}
		if has1 && has2 {
			t.Errorf("top two seeds ended up in the same pool: %v", pool)
		}
	}
}
