package units

import (
	"errors"
	"math"
	"strconv"
	"testing"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		token string
		want  float64
	}{
		{"72", 72},
		{"72pt", 72},
		{"72 pt", 72},
		{"10point", 10},
		{"10 points", 10},
		{"1in", 72},
		{"1 inch", 72},
		{"2inches", 144},
		{"25.4mm", 72},
		{"2.54cm", 72},
		{"10MM", 10 * 72 / 25.4},
		{"  3.5 Cm ", 3.5 * 72 / 2.54},
		{"-5mm", -5 * 72 / 25.4},
		{"0.5", 0.5},
		{"1e3", 1000},
		{"1.5e2mm", 150 * 72 / 25.4},
		{"2E1 pt", 20},
	}
	for _, tc := range cases {
		got, err := Resolve(tc.token)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tc.token, err)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Resolve(%q) = %v, want %v", tc.token, got, tc.want)
		}
	}
}

func TestResolveLinearity(t *testing.T) {
	for _, n := range []float64{0, 0.25, 1, 13.7, 200} {
		s := strconv.FormatFloat(n, 'f', -1, 64)
		s10 := strconv.FormatFloat(n*10, 'f', -1, 64)
		cm, err := Resolve(s + "cm")
		if err != nil {
			t.Fatal(err)
		}
		mm, err := Resolve(s10 + "mm")
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(cm-mm) > 1e-9 {
			t.Fatalf("n=%v: %scm = %v pt but %smm = %v pt", n, s, cm, s10, mm)
		}
	}
	in, err := Resolve("1in")
	if err != nil || in != 72 {
		t.Fatalf("Resolve(1in) = %v, %v, want exactly 72", in, err)
	}
}

func TestResolveMalformed(t *testing.T) {
	for _, token := range []string{"", "abc", "10xyz", "10 feet", "..5mm", "10mm2"} {
		_, err := Resolve(token)
		if err == nil {
			t.Fatalf("Resolve(%q): expected error", token)
		}
		var me *MalformedDimensionError
		if !errors.As(err, &me) {
			t.Fatalf("Resolve(%q): error %T is not MalformedDimensionError", token, err)
		}
	}
}
