package account

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var nameSuffixes = map[string]bool{
	"jr": true, "jr.": true, "sr": true, "sr.": true,
	"ii": true, "iii": true, "iv": true, "v": true,
}

// LastNameKey extracts the sort key for a display name. "Last, First" uses the
// part before the comma; otherwise the final word that is not a generational
// suffix.
func LastNameKey(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if before, _, ok := strings.Cut(name, ","); ok {
		if last := strings.TrimSpace(before); last != "" {
			return strings.ToLower(last)
		}
	}
	parts := strings.Fields(name)
	for i := len(parts) - 1; i >= 0; i-- {
		if !nameSuffixes[strings.ToLower(parts[i])] {
			return strings.ToLower(parts[i])
		}
	}
	return strings.ToLower(parts[len(parts)-1])
}

// SortByLastName orders accounts for the administrator roster: by last name,
// then full name, then email, using English collation.
func SortByLastName(accounts []Account) {
	c := collate.New(language.English, collate.IgnoreCase, collate.IgnoreDiacritics)
	sort.SliceStable(accounts, func(i, j int) bool {
		if cmp := c.CompareString(LastNameKey(accounts[i].Name), LastNameKey(accounts[j].Name)); cmp != 0 {
			return cmp < 0
		}
		if cmp := c.CompareString(accounts[i].Name, accounts[j].Name); cmp != 0 {
			return cmp < 0
		}
		return accounts[i].Email < accounts[j].Email
	})
}
