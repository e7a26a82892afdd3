package store

import "fmt"

// Copy reads each named table from src and writes it whole to dst, keeping
// record order and the id high-water mark. It returns the number of records
// copied per table. Tables already in dst are replaced.
func Copy(src, dst Medium, tables []string) (map[string]int, error) {
	counts := make(map[string]int, len(tables))
	for _, name := range tables {
		snap, err := src.Load(name)
		if err != nil {
			return counts, fmt.Errorf("reading %s: %w", name, err)
		}
		if err := dst.Save(name, snap); err != nil {
			return counts, fmt.Errorf("writing %s: %w", name, err)
		}
		counts[name] = len(snap.Records)
	}
	return counts, nil
}
