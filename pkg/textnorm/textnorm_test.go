package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "bullets and collapsed whitespace",
			in:   " • Led  team\r\n\r\n\r\n\r\nShipped  v1 ",
			want: "- Led team\n\nShipped v1",
		},
		{
			name: "ordinal suffix spacing",
			in:   "Graduated 1 st in class, 2 nd attempt, 3 rd cohort, 4 th year",
			want: "Graduated 1st in class, 2nd attempt, 3rd cohort, 4th year",
		},
		{
			name: "mixed line endings",
			in:   "line one\r\nline two\rline three\nline four",
			want: "line one\nline two\nline three\nline four",
		},
		{
			name: "tabs collapse to single space",
			in:   "skills:\tGo,\t\tPostgres",
			want: "skills: Go, Postgres",
		},
		{
			name: "double newline preserved",
			in:   "para one\n\npara two",
			want: "para one\n\npara two",
		},
		{
			name: "exotic bullet glyphs",
			in:   "● Go\n◦ SQL\n‣ Redis",
			want: "- Go\n- SQL\n- Redis",
		},
		{
			name: "ordinal not joined across lines",
			in:   "ranked 1\nst place",
			want: "ranked 1\nst place",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.in)
			if got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		" • Led  team\r\n\r\n\r\n\r\nShipped  v1 ",
		"plain text",
		"a\r\rb\n\n\n\nc",
		"1 st   2 nd\t3 rd",
		"word  \n  word",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}
