package ical

// Filterer removes excluded occurrences and applies per-instance overrides
// to an expanded occurrence list.
type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// ExcludeOccurrences drops occurrences whose start matches an entry of the
// exclusion set, compared against both the full start value and its
// date-only prefix.
func (f *Filterer) ExcludeOccurrences(occurrences []EventOccurrence, exDates map[string]struct{}) []EventOccurrence {
	if len(exDates) == 0 {
		return occurrences
	}

	kept := make([]EventOccurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		if occ.Start.IsZero() {
			kept = append(kept, occ)
			continue
		}
		if _, ok := exDates[occ.Start.Value()]; ok {
			continue
		}
		if _, ok := exDates[occ.Start.DateOnly()]; ok {
			continue
		}
		kept = append(kept, occ)
	}

	return kept
}

// ApplyOverrides replaces generated instances with their override blocks.
// An override supersedes the occurrence sharing its UID whose start equals
// the override's recurrence anchor. Overrides without a matching generated
// instance are appended as standalone occurrences so that a rescheduled
// instance beyond the expansion horizon is not lost.
func (f *Filterer) ApplyOverrides(occurrences []EventOccurrence, overrides []EventOccurrence) []EventOccurrence {
	for _, override := range overrides {
		if override.UID == "" || override.RecurrenceID == "" {
			occurrences = append(occurrences, override)
			continue
		}

		replaced := false
		for i, occ := range occurrences {
			if occ.UID != override.UID {
				continue
			}
			if occ.Start.Value() == override.RecurrenceID || occ.Start.DateOnly() == override.RecurrenceID {
				occurrences[i] = override
				replaced = true
				break
			}
		}

		if !replaced {
			occurrences = append(occurrences, override)
		}
	}

	return occurrences
}
