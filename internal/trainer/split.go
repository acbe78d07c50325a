package trainer

import (
	"math"
	"math/rand/v2"
)

// TrainTestSplit shuffles the indices [0, n) with a seeded source and returns
// them as training and validation partitions. The validation partition holds
// ceil(n * testFraction) indices.
func TrainTestSplit(n int, testFraction float64, seed uint64) (train, val []int) {
	nTest := int(math.Ceil(float64(n) * testFraction))
	nTest = min(max(nTest, 0), n)

	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)
	return perm[nTest:], perm[:nTest]
}
