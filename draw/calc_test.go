package draw

import (
	"errors"
	"testing"
)

func TestMinimumPerformers(t *testing.T) {
	tests := []struct {
		name        string
		groupsIdeal int
		guests      int
		want        int
	}{
		{"two pools no guests", 2, 0, 5},
		{"three pools no guests", 3, 0, 7},
		{"guests reduce the minimum", 3, 2, 5},
		{"many guests clamp to one", 2, 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MinimumPerformers(tt.groupsIdeal, tt.guests); got != tt.want {
				t.Errorf("MinimumPerformers(%d, %d) = %d, want %d", tt.groupsIdeal, tt.guests, got, tt.want)
			}
		})
	}
}

func TestPoolCapacity(t *testing.T) {
	tests := []struct {
		name            string
		registered      int
		groupsIdeal     int
		performersIdeal int
		wantCapacity    int
		wantPerPool     int
		wantEliminated  int
	}{
		{"more than ideal registered", 15, 3, 4, 12, 4, 3},
		{"exactly one over ideal", 13, 3, 4, 12, 4, 1},
		{"ideal count shrinks pools", 12, 3, 4, 9, 3, 3},
		{"shrinks to minimum pool size", 7, 3, 4, 6, 2, 1},
		{"two pools small field", 5, 2, 4, 4, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capacity, perPool, eliminated, err := PoolCapacity(tt.registered, tt.groupsIdeal, tt.performersIdeal)
			if err != nil {
				t.Fatalf("PoolCapacity(%d, %d, %d) returned error: %v", tt.registered, tt.groupsIdeal, tt.performersIdeal, err)
			}
			if capacity != tt.wantCapacity || perPool != tt.wantPerPool || eliminated != tt.wantEliminated {
				t.Errorf("PoolCapacity(%d, %d, %d) = (%d, %d, %d), want (%d, %d, %d)",
					tt.registered, tt.groupsIdeal, tt.performersIdeal,
					capacity, perPool, eliminated,
					tt.wantCapacity, tt.wantPerPool, tt.wantEliminated)
			}
			if capacity%tt.groupsIdeal != 0 {
				t.Errorf("capacity %d is not divisible by %d pools", capacity, tt.groupsIdeal)
			}
			if eliminated < 1 {
				t.Errorf("eliminated = %d, preselection must eliminate at least one", eliminated)
			}
		})
	}
}

func TestPoolCapacityNotEnoughPerformers(t *testing.T) {
	// С 6 участниками на 3 пула минимальная ёмкость 3*2=6 никого не отсеивает.
	_, _, _, err := PoolCapacity(6, 3, 4)
	if !errors.Is(err, ErrNotEnoughToEliminate) {
		t.Fatalf("expected ErrNotEnoughToEliminate, got %v", err)
	}
}

func TestDistributeEqual(t *testing.T) {
	sizes, err := DistributeEqual(12, 3)
	if err != nil {
		t.Fatalf("DistributeEqual(12, 3) returned error: %v", err)
	}
	if len(sizes) != 3 {
		t.Fatalf("expected 3 pools, got %d", len(sizes))
	}
	for i, size := range sizes {
		if size != 4 {
			t.Errorf("pool %d size = %d, want 4", i, size)
		}
	}

	if _, err := DistributeEqual(10, 3); !errors.Is(err, ErrUnevenDistribution) {
		t.Errorf("expected ErrUnevenDistribution for 10 into 3, got %v", err)
	}
}

func TestPoolPoints(t *testing.T) {
	// 3 победы, 1 ничья, 2 поражения = 10 очков.
	if got := PoolPoints(3, 1); got != 10 {
		t.Errorf("PoolPoints(3, 1) = %d, want 10", got)
	}
	if got := PoolPoints(0, 0); got != 0 {
		t.Errorf("PoolPoints(0, 0) = %d, want 0", got)
	}
}
