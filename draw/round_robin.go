package draw

// Pair - неупорядоченная пара участников одного пула.
type Pair struct {
	A int
	B int
}

// RoundRobinPairs строит полный круг: каждая неупорядоченная пара
// участников встречается ровно один раз, итого n*(n-1)/2 пар.
func RoundRobinPairs(performerIDs []int) []Pair {
	n := len(performerIDs)
	pairs := make([]Pair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, Pair{A: performerIDs[i], B: performerIDs[j]})
		}
	}
	return pairs
}
