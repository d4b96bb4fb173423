package draw

import "github.com/aruzhans/dance-battle-system/models"

// Interleave сливает очереди баттлов нескольких номинаций в общую
// очередь round-robin: по одному баттлу из каждого списка по кругу,
// пока списки не исчерпаны. Порядок внутри номинации сохраняется.
func Interleave(perCategory [][]*models.Battle) []*models.Battle {
	total := 0
	for _, list := range perCategory {
		total += len(list)
	}

	ordered := make([]*models.Battle, 0, total)
	idx := make([]int, len(perCategory))
	for len(ordered) < total {
		for li, list := range perCategory {
			if idx[li] < len(list) {
				ordered = append(ordered, list[idx[li]])
				idx[li]++
			}
		}
	}
	return ordered
}
