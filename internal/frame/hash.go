package frame

import (
	"github.com/corona10/goimagehash"
)

// Fingerprint computes the perceptual hash of the record and stores it in Hash.
func (r *Record) Fingerprint() (uint64, error) {
	img, err := r.ToImage()
	if err != nil {
		return 0, err
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return 0, err
	}
	r.Hash = hash.GetHash()
	return r.Hash, nil
}

// Distance returns the Hamming distance between two perceptual hashes.
// ok is false when either record has no hash.
func Distance(a, b *Record) (dist int, ok bool) {
	if a == nil || b == nil || a.Hash == 0 || b.Hash == 0 {
		return 0, false
	}
	ha := goimagehash.NewImageHash(a.Hash, goimagehash.PHash)
	hb := goimagehash.NewImageHash(b.Hash, goimagehash.PHash)
	d, err := ha.Distance(hb)
	if err != nil {
		return 0, false
	}
	return d, true
}

// NearDuplicate reports whether two records look the same to a human.
func NearDuplicate(a, b *Record) bool {
	d, ok := Distance(a, b)
	return ok && d <= MaxHashDistance
}
