package directory

import "testing"

func TestCanonicalPlaceKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"huambo", "Huambo"},
		{"  huambo  ", "Huambo"},
		{"HUAMBO", "Huambo"},
		{"lubango   da   huíla", "Lubango Da Huíla"},
		{"huíla", "Huíla"},
		// NFD input normalizes to the same NFC key.
		{"Huíla", "Huíla"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := CanonicalPlaceKey(tc.in); got != tc.want {
			t.Errorf("CanonicalPlaceKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalPlaceKeyIdempotent(t *testing.T) {
	inputs := []string{"huambo", "  LUBANGO  ", "Huíla", "benguela do sul"}
	for _, in := range inputs {
		once := CanonicalPlaceKey(in)
		if twice := CanonicalPlaceKey(once); twice != once {
			t.Errorf("CanonicalPlaceKey not idempotent for %q: %q != %q", in, twice, once)
		}
	}
}
