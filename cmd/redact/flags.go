package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/OPWeb-ui/EZtify-sub000/annotation"
	"github.com/OPWeb-ui/EZtify-sub000/session"
)

// regionSpec is a region given on the command line. Page is 1-based.
type regionSpec struct {
	Page   int
	Region annotation.Region
	Fill   annotation.Color
	Label  string
	// HasFill is false when the flag omitted the color.
	HasFill bool
}

// parseRegion parses "page:x,y,w,h[:color[:label]]" with x, y, w and h in
// percent of the page.
func parseRegion(s string) (regionSpec, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 2 {
		return regionSpec{}, fmt.Errorf("region %q: want page:x,y,w,h[:color[:label]]", s)
	}
	var spec regionSpec
	page, err := strconv.Atoi(parts[0])
	if err != nil || page < 1 {
		return regionSpec{}, fmt.Errorf("region %q: page must be a positive number", s)
	}
	spec.Page = page

	nums := strings.Split(parts[1], ",")
	if len(nums) != 4 {
		return regionSpec{}, fmt.Errorf("region %q: want four coordinates", s)
	}
	var v [4]float64
	for i, n := range nums {
		if v[i], err = strconv.ParseFloat(strings.TrimSpace(n), 64); err != nil {
			return regionSpec{}, fmt.Errorf("region %q: coordinate %q: %w", s, n, err)
		}
	}
	spec.Region = annotation.Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if err := spec.Region.Validate(); err != nil {
		return regionSpec{}, fmt.Errorf("region %q: %w", s, err)
	}

	if len(parts) > 2 && parts[2] != "" {
		if spec.Fill, err = annotation.ParseColor(parts[2]); err != nil {
			return regionSpec{}, fmt.Errorf("region %q: %w", s, err)
		}
		spec.HasFill = true
	}
	if len(parts) > 3 {
		spec.Label = parts[3]
	}
	return spec, nil
}

// regionsValue collects repeated --region flags.
type regionsValue struct {
	specs []regionSpec
	raw   []string
}

var _ pflag.Value = (*regionsValue)(nil)

func (r *regionsValue) String() string { return "[" + strings.Join(r.raw, " ") + "]" }

func (r *regionsValue) Set(s string) error {
	spec, err := parseRegion(s)
	if err != nil {
		return err
	}
	r.specs = append(r.specs, spec)
	r.raw = append(r.raw, s)
	return nil
}

func (r *regionsValue) Type() string { return "region" }

// annotateFlags are the flags shared by commands that annotate before acting.
type annotateFlags struct {
	searches []string
	regions  regionsValue
}

func (f *annotateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.searches, "search", "s", nil, "redact every occurrence of this text (repeatable)")
	cmd.Flags().VarP(&f.regions, "region", "r", "redact page:x,y,w,h[:color[:label]] in percent of the page (repeatable)")
}

// apply adds the requested annotations to s and returns how many were added.
func (f *annotateFlags) apply(cmd *cobra.Command, s *session.Session, fill annotation.Color) (int, error) {
	added := 0
	for _, q := range f.searches {
		matches, err := s.Search(cmd.Context(), q)
		if err != nil {
			return added, fmt.Errorf("search %q: %w", q, err)
		}
		for _, m := range matches {
			if _, err := s.ApplyMatch(m); err != nil {
				return added, fmt.Errorf("apply match on page %d: %w", m.PageIndex+1, err)
			}
			added++
		}
	}
	for _, r := range f.regions.specs {
		page, err := s.PageID(r.Page - 1)
		if err != nil {
			return added, fmt.Errorf("region on page %d: %w", r.Page, err)
		}
		c := fill
		if r.HasFill {
			c = r.Fill
		}
		if _, err := s.DrawAnnotation(page, r.Region, c, r.Label); err != nil {
			return added, fmt.Errorf("region on page %d: %w", r.Page, err)
		}
		added++
	}
	return added, nil
}
