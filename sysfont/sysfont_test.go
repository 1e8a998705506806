package sysfont

import "testing"

func TestNormalizeFamily(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Noto Sans CJK JP", "notosanscjkjp"},
		{"noto-sans-cjk-jp", "notosanscjkjp"},
		{"Hiragino_Kaku Gothic Pro", "hiraginokakugothicpro"},
		{"Meiryo", "meiryo"},
	}
	for _, tc := range cases {
		if got := normalizeFamily(tc.in); got != tc.want {
			t.Fatalf("normalizeFamily(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFindNoMatch(t *testing.T) {
	f := NewDirFinder(t.TempDir())
	m, err := f.Find([]string{"Noto Sans CJK JP"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if m != nil {
		t.Fatalf("expected no match, got %+v", m)
	}
}

func TestPlatformFontDirs(t *testing.T) {
	dirs := platformFontDirs()
	if len(dirs) == 0 {
		t.Fatal("no font directories for platform")
	}
}
