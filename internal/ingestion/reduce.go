package ingestion

import "github.com/rpattn/consulta/internal/domain"

// FilterAllowed keeps the candidates whose event label is importable.
func FilterAllowed(candidates []domain.Order) []domain.Order {
	kept := make([]domain.Order, 0, len(candidates))
	for _, candidate := range candidates {
		if domain.AllowedEvent(candidate.LastEvent) {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// Deduplicate collapses candidates sharing a reference. The survivor keeps the
// position of the first occurrence and the content of the last.
func Deduplicate(candidates []domain.Order) []domain.Order {
	positions := make(map[string]int, len(candidates))
	unique := make([]domain.Order, 0, len(candidates))
	for _, candidate := range candidates {
		if idx, ok := positions[candidate.Reference]; ok {
			unique[idx] = candidate
			continue
		}
		positions[candidate.Reference] = len(unique)
		unique = append(unique, candidate)
	}
	return unique
}

// Reduce filters then deduplicates a batch. It does not modify its input.
func Reduce(candidates []domain.Order) []domain.Order {
	return Deduplicate(FilterAllowed(candidates))
}
