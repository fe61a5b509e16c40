package mesh

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// PartitionStrips assigns elements to nparts partitions by sorting their
// centers along one axis and cutting the order into balanced strips
func (m *Mesh) PartitionStrips(nparts, axis int) {
	if nparts < 1 {
		panic(fmt.Sprintf("mesh: %d partitions", nparts))
	}
	order := lo.Range(m.NumElements)
	centers := lo.Map(order, func(e int, _ int) float64 {
		return m.ElementCenter(e)[axis]
	})
	sort.SliceStable(order, func(i, j int) bool {
		return centers[order[i]] < centers[order[j]]
	})
	m.EToP = make([]int, m.NumElements)
	for p := 0; p < nparts; p++ {
		bucket := split1D(m.NumElements, nparts, p)
		for _, e := range order[bucket[0]:bucket[1]] {
			m.EToP[e] = p
		}
	}
}

// split1D splits n items into nparts ranges with a maximum imbalance of one
func split1D(n, nparts, p int) (bucket [2]int) {
	var (
		npart            = n / nparts
		remainder        = n % nparts
		startAdd, endAdd int
	)
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if p+1 > remainder {
			startAdd = remainder
		} else {
			startAdd = p
			endAdd = 1
		}
	}
	bucket[0] = p*npart + startAdd
	bucket[1] = bucket[0] + npart + endAdd
	return
}

// PartitionSizes counts the elements of each partition
func (m *Mesh) PartitionSizes() map[int]int {
	return lo.CountValues(m.EToP)
}
