package main

import (
	"errors"
	"testing"

	"github.com/OPWeb-ui/EZtify-sub000/annotation"
)

func TestParseRegion(t *testing.T) {
	cases := []struct {
		in   string
		want regionSpec
	}{
		{"2:10,20,60,6", regionSpec{Page: 2, Region: annotation.Region{X: 10, Y: 20, Width: 60, Height: 6}}},
		{"1:0,0,100,100:white", regionSpec{Page: 1, Region: annotation.Region{Width: 100, Height: 100}, Fill: annotation.White, HasFill: true}},
		{"3:5, 5, 10, 10:gray:Acct: 42", regionSpec{Page: 3, Region: annotation.Region{X: 5, Y: 5, Width: 10, Height: 10}, Fill: annotation.Gray, HasFill: true, Label: "Acct: 42"}},
		{"1:5,5,10,10::SSN", regionSpec{Page: 1, Region: annotation.Region{X: 5, Y: 5, Width: 10, Height: 10}, Label: "SSN"}},
	}
	for _, tc := range cases {
		got, err := parseRegion(tc.in)
		if err != nil {
			t.Fatalf("parseRegion(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parseRegion(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestParseRegion_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"2",
		"0:10,10,10,10",
		"x:10,10,10,10",
		"1:10,10,10",
		"1:10,10,ten,10",
		"1:90,10,20,10",
		"1:10,10,10,10:purple",
	} {
		if _, err := parseRegion(in); err == nil {
			t.Errorf("parseRegion(%q) should fail", in)
		}
	}
	if _, err := parseRegion("1:90,10,20,10"); !errors.Is(err, annotation.ErrInvalidRegion) {
		t.Fatalf("expected ErrInvalidRegion, got %v", err)
	}
}

func TestRegionsValue(t *testing.T) {
	var v regionsValue
	for _, s := range []string{"1:1,1,5,5", "2:1,1,5,5:gray"} {
		if err := v.Set(s); err != nil {
			t.Fatalf("set %q: %v", s, err)
		}
	}
	if err := v.Set("bad"); err == nil {
		t.Fatal("expected error")
	}
	if len(v.specs) != 2 || v.String() != "[1:1,1,5,5 2:1,1,5,5:gray]" || v.Type() != "region" {
		t.Fatalf("unexpected value %+v %q", v.specs, v.String())
	}
}
