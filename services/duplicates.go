package services

import "github.com/lawweapons/bevisdrive/models"

type duplicateKey struct {
	name string
	size int64
}

// FindDuplicates groups files by (original name, size) and returns every
// group with more than one member, concatenated in order of first appearance.
// Members keep their input order.
func FindDuplicates(files []models.File) []models.File {
	groups := make(map[duplicateKey][]models.File, len(files))
	order := make([]duplicateKey, 0, len(files))
	for _, f := range files {
		key := duplicateKey{name: f.OriginalName, size: f.Size}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], f)
	}

	out := make([]models.File, 0)
	for _, key := range order {
		if group := groups[key]; len(group) > 1 {
			out = append(out, group...)
		}
	}
	return out
}
