package pipeline

import (
	"slices"
	"testing"
)

func TestSortByNameIgnoringCase(t *testing.T) {
	records := namedUsers("carla", "Bruno", "ana", "Daniel")

	ascending := Sort(records, SortAscending)
	descending := Sort(records, SortDescending)

	assertStrings(t, "ascending", namesOf(ascending), []string{"ana", "Bruno", "carla", "Daniel"})
	assertStrings(t, "descending", namesOf(descending), []string{"Daniel", "carla", "Bruno", "ana"})
}

func TestSortIsIdempotent(t *testing.T) {
	records := namedUsers("Eva", "beto", "Caio", "ana", "Beto")

	once := Sort(records, SortAscending)
	twice := Sort(once, SortAscending)

	assertStrings(t, "idempotent", idsOf(twice), idsOf(once))
}

func TestSortDescendingReversesAscendingWithoutTies(t *testing.T) {
	records := namedUsers("Eva", "Beto", "Caio", "Ana", "Davi")

	ascending := idsOf(Sort(records, SortAscending))
	slices.Reverse(ascending)

	assertStrings(t, "reversed", idsOf(Sort(records, SortDescending)), ascending)
}

func TestSortKeepsTiesInInputOrder(t *testing.T) {
	records := namedUsers("ana", "Bia", "ANA", "Ana")

	assertStrings(t, "ascending ties", idsOf(Sort(records, SortAscending)), []string{"id-01", "id-03", "id-04", "id-02"})
	assertStrings(t, "descending ties", idsOf(Sort(records, SortDescending)), []string{"id-02", "id-01", "id-03", "id-04"})
}

func TestSortDoesNotMutateInput(t *testing.T) {
	records := namedUsers("Caio", "Ana")

	_ = Sort(records, SortAscending)

	assertStrings(t, "input", namesOf(records), []string{"Caio", "Ana"})
}

func TestParseSortOrder(t *testing.T) {
	testCases := map[string]SortOrder{
		"":           SortAscending,
		"asc":        SortAscending,
		"ascending":  SortAscending,
		"DESC":       SortDescending,
		"descending": SortDescending,
		"sideways":   SortAscending,
	}
	for raw, want := range testCases {
		if got := ParseSortOrder(raw); got != want {
			t.Fatalf("parse %q: got %q want %q", raw, got, want)
		}
	}
	if SortAscending.Toggle() != SortDescending || SortDescending.Toggle() != SortAscending {
		t.Fatalf("toggle should flip direction")
	}
}
