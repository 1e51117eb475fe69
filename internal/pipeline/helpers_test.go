package pipeline

import (
	"fmt"
	"testing"

	"github.com/MarcoPoloResearchLab/roster/internal/users"
)

func numberedUsers(count int) []users.User {
	records := make([]users.User, 0, count)
	for index := 1; index <= count; index++ {
		records = append(records, users.User{
			ID:     fmt.Sprintf("id-%02d", index),
			Name:   fmt.Sprintf("U%d", index),
			Email:  fmt.Sprintf("u%d@example.com", index),
			Status: users.StatusActive,
		})
	}
	return records
}

func namedUsers(names ...string) []users.User {
	records := make([]users.User, 0, len(names))
	for index, name := range names {
		records = append(records, users.User{
			ID:     fmt.Sprintf("id-%02d", index+1),
			Name:   name,
			Email:  fmt.Sprintf("person%d@example.com", index+1),
			Status: users.StatusActive,
		})
	}
	return records
}

func idsOf(records []users.User) []string {
	ids := make([]string, len(records))
	for index, record := range records {
		ids[index] = record.ID
	}
	return ids
}

func namesOf(records []users.User) []string {
	names := make([]string, len(records))
	for index, record := range records {
		names[index] = record.Name
	}
	return names
}

func assertStrings(t *testing.T, label string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %v want %v", label, got, want)
	}
	for index := range want {
		if got[index] != want[index] {
			t.Fatalf("%s: got %v want %v", label, got, want)
		}
	}
}
