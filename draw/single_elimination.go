package draw

import (
	"errors"
	"fmt"
	"math"
)

// BracketMatch - узел финальной сетки до сохранения в БД.
// Performer1ID/Performer2ID заполнены, когда участник известен сразу
// (первый раунд или проход по bye), иначе стоит ссылка на матч-источник.
type BracketMatch struct {
	UID          string
	Round        int
	OrderInRound int

	Performer1ID *int
	Performer2ID *int

	SourceMatch1UID *string
	SourceMatch2UID *string
}

type bracketNode struct {
	performerID *int
	sourceUID   *string
}

// GenerateSingleElimination строит сетку на выбывание для победителей пулов.
// seededIDs идут от сильнейшего к слабейшему; при числе участников,
// не равном степени двойки, bye достаются верхним сеяным.
func GenerateSingleElimination(seededIDs []int) ([]*BracketMatch, error) {
	n := len(seededIDs)
	if n < 2 {
		return nil, errors.New("not enough pool winners for a bracket (minimum 2)")
	}

	numRounds := int(math.Ceil(math.Log2(float64(n))))
	bracketSize := 1 << uint(numRounds)
	numByes := bracketSize - n

	// Слоты первого раунда: каждый bye ставится напротив верхнего сеяного,
	// остальные заполняются по порядку посева. nil-слот означает bye.
	nodes := make([]*bracketNode, 0, bracketSize)
	seedIdx := 0
	for i := 0; i < numByes; i++ {
		id := seededIDs[seedIdx]
		seedIdx++
		nodes = append(nodes, &bracketNode{performerID: &id}, nil)
	}
	for seedIdx < n {
		id := seededIDs[seedIdx]
		seedIdx++
		nodes = append(nodes, &bracketNode{performerID: &id})
	}

	matches := make([]*BracketMatch, 0, n-1)
	for r := 1; r <= numRounds; r++ {
		nextNodes := make([]*bracketNode, 0, len(nodes)/2)
		order := 0

		for i := 0; i < len(nodes); i += 2 {
			node1, node2 := nodes[i], nodes[i+1]

			// Один из слотов пустой: участник проходит дальше без матча.
			if node2 == nil {
				nextNodes = append(nextNodes, node1)
				continue
			}
			if node1 == nil {
				nextNodes = append(nextNodes, node2)
				continue
			}

			order++
			uid := fmt.Sprintf("R%dM%d", r, order)
			matches = append(matches, &BracketMatch{
				UID:             uid,
				Round:           r,
				OrderInRound:    order,
				Performer1ID:    node1.performerID,
				Performer2ID:    node2.performerID,
				SourceMatch1UID: node1.sourceUID,
				SourceMatch2UID: node2.sourceUID,
			})

			matchUID := uid
			nextNodes = append(nextNodes, &bracketNode{sourceUID: &matchUID})
		}
		nodes = nextNodes
	}

	if len(nodes) != 1 {
		return nil, fmt.Errorf("internal error: bracket collapsed to %d nodes instead of 1", len(nodes))
	}
	return matches, nil
}
