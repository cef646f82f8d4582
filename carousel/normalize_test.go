package carousel

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"clean", "https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"surrounding whitespace", "  https://cdn.example.com/a.jpg  ", "https://cdn.example.com/a.jpg"},
		{"amp entity", "https://cdn.example.com/a.jpg?k=v&amp;sig=abc", "https://cdn.example.com/a.jpg?k=v&sig=abc"},
		{"quot entity", "&quot;https://cdn.example.com/a.jpg&quot;", "https://cdn.example.com/a.jpg"},
		{"quot without semicolon", "&quothttps://cdn.example.com/a.jpg&quot", "https://cdn.example.com/a.jpg"},
		{"backslash remnant", `https://cdn.example.com/a.jpg\&quot;)`, "https://cdn.example.com/a.jpg"},
		{"trailing quotes", `https://cdn.example.com/a.jpg"'`, "https://cdn.example.com/a.jpg"},
		{"all at once", ` &quot;https://cdn.example.com/a.jpg?k=v&amp;sig=abc&quot;' `, "https://cdn.example.com/a.jpg?k=v&sig=abc"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"https://cdn.example.com/a.jpg",
		"https://cdn.example.com/a.jpg?k=v&amp;sig=abc",
		"&quot;https://cdn.example.com/a.jpg&quot;",
		`https://cdn.example.com/a.jpg\rest`,
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent on %q: %q then %q", in, once, twice)
		}
	}
}
