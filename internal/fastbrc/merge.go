package fastbrc

// Merge reduces the per-worker tables into one. The first table becomes the
// result and absorbs the others, which must not be used afterwards.
func Merge(tables []*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, ErrNoTables
	}

	merged := tables[0]
	for _, t := range tables[1:] {
		if err := merged.Absorb(t); err != nil {
			return nil, err
		}
	}
	return merged, nil
}
