package draw

import (
	"errors"
	"fmt"
)

var (
	ErrUnevenDistribution   = errors.New("capacity is not evenly divisible across pools")
	ErrNotEnoughToEliminate = errors.New("not enough performers: preselection must eliminate at least one")
)

// MinimumPerformers возвращает минимальное число участников номинации,
// при котором отборочные имеют смысл: (groupsIdeal*2 + 1) минус по одному
// за каждого гостя. Никогда не опускается ниже 1.
func MinimumPerformers(groupsIdeal, guestCount int) int {
	min := groupsIdeal*2 + 1 - guestCount
	if min < 1 {
		return 1
	}
	return min
}

// PoolCapacity вычисляет, сколько участников проходит отборочные.
// Гарантии: capacity кратна groupsIdeal и eliminated >= 1 - отборочные
// обязаны кого-то отсеять.
func PoolCapacity(registered, groupsIdeal, performersIdeal int) (capacity, perPool, eliminated int, err error) {
	if groupsIdeal < 2 {
		return 0, 0, 0, fmt.Errorf("groupsIdeal must be at least 2, got %d", groupsIdeal)
	}
	if performersIdeal < 2 {
		return 0, 0, 0, fmt.Errorf("performersIdeal must be at least 2, got %d", performersIdeal)
	}

	ideal := groupsIdeal * performersIdeal
	if registered >= ideal+1 {
		return ideal, performersIdeal, registered - ideal, nil
	}

	for perPool = performersIdeal; perPool >= 2; perPool-- {
		if groupsIdeal*perPool < registered {
			capacity = groupsIdeal * perPool
			return capacity, perPool, registered - capacity, nil
		}
	}

	return 0, 0, 0, fmt.Errorf("%w: %d registered for %d pools", ErrNotEnoughToEliminate, registered, groupsIdeal)
}

// DistributeEqual разбивает capacity на groups равных по размеру пулов.
// Неровное деление исключено гарантией PoolCapacity, но проверяется.
func DistributeEqual(capacity, groups int) ([]int, error) {
	if groups <= 0 {
		return nil, fmt.Errorf("groups must be positive, got %d", groups)
	}
	if capacity%groups != 0 {
		return nil, fmt.Errorf("%w: %d into %d", ErrUnevenDistribution, capacity, groups)
	}
	sizes := make([]int, groups)
	for i := range sizes {
		sizes[i] = capacity / groups
	}
	return sizes, nil
}

// PoolPoints - очки участника в пуле: победа 3, ничья 1, поражение 0.
func PoolPoints(wins, draws int) int {
	return wins*3 + draws
}
