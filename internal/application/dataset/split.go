package dataset

import "math/rand"

// SplitDocuments draws int(ratio*len(ids)) test documents with a generator
// seeded by seed.  Test ids are in draw order, train ids keep input order.
func SplitDocuments(ids []string, ratio float64, seed int64) (train, test []string) {
	k := int(ratio * float64(len(ids)))
	if k < 0 {
		k = 0
	}
	if k > len(ids) {
		k = len(ids)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(len(ids))[:k]
	picked := make(map[int]struct{}, k)
	for _, p := range perm {
		picked[p] = struct{}{}
		test = append(test, ids[p])
	}
	for i, id := range ids {
		if _, ok := picked[i]; !ok {
			train = append(train, id)
		}
	}
	return train, test
}

//Personal.AI order the ending
