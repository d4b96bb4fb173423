package draw

// SnakeDraft раскладывает отранжированных участников по пулам "змейкой":
// пулы 0..N-1, затем N-1..0 и так далее. Суммарная сила пулов выравнивается.
// rankedIDs должны идти от сильнейшего к слабейшему.
func SnakeDraft(rankedIDs []int, numPools int) [][]int {
	pools := make([][]int, numPools)
	if numPools <= 0 {
		return pools
	}

	poolIdx := 0
	forward := true
	for _, id := range rankedIDs {
		pools[poolIdx] = append(pools[poolIdx], id)
		if forward {
			if poolIdx == numPools-1 {
				forward = false
			} else {
				poolIdx++
			}
		} else {
			if poolIdx == 0 {
				forward = true
			} else {
				poolIdx--
			}
		}
	}
	return pools
}
