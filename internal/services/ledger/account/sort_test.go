package account

import "testing"

func TestLastNameKey(t *testing.T) {
	cases := map[string]string{
		"Jones, Ann":        "jones",
		"Ann Marie Jones":   "jones",
		"Robert Smith Jr.":  "smith",
		"Henry Ford III":    "ford",
		"  Cher  ":          "cher",
		"":                  "",
		", Leading":         "leading",
		"John Doe sr":       "doe",
		"Martin Luther V":   "luther",
	}
	for name, want := range cases {
		if got := LastNameKey(name); got != want {
			t.Fatalf("LastNameKey(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestSortByLastName(t *testing.T) {
	accounts := []Account{
		{Email: "z@example.com", Name: "Zed Adams"},
		{Email: "c@example.com", Name: "Carl Émile Brown Jr."},
		{Email: "a@example.com", Name: "Adams, Amy"},
		{Email: "b@example.com", Name: "bob brown"},
	}
	SortByLastName(accounts)

	want := []string{"a@example.com", "z@example.com", "b@example.com", "c@example.com"}
	for i, email := range want {
		if accounts[i].Email != email {
			t.Fatalf("position %d = %s, want %s (order %+v)", i, accounts[i].Email, email, accounts)
		}
	}
}
