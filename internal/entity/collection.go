package entity

import (
	"fmt"
	"sort"
	"strings"
)

// Mapping is one established (canonical name, raw name) pair.
type Mapping struct {
	CanonicalName string
	RawName       string
}

// Collection is an ordered sequence of lab results. Insertion order is
// preserved for display; it carries no correctness meaning.
type Collection struct {
	Records []*LabResult
}

func NewCollection() *Collection {
	return &Collection{}
}

// Append adds records to the end of the collection.
func (c *Collection) Append(records ...*LabResult) {
	c.Records = append(c.Records, records...)
}

// Extend appends all records from another collection.
func (c *Collection) Extend(other *Collection) {
	if other == nil {
		return
	}
	c.Records = append(c.Records, other.Records...)
}

func (c *Collection) Len() int {
	return len(c.Records)
}

// KnownMappings returns the unique (canonical, raw) pairs already resolved,
// sorted for deterministic prompt context.
func (c *Collection) KnownMappings() []Mapping {
	seen := map[Mapping]struct{}{}
	var out []Mapping
	for _, r := range c.Records {
		if !r.Mapped() || !r.Valid() {
			continue
		}
		m := Mapping{CanonicalName: *r.CanonicalName, RawName: r.RawName}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CanonicalName != out[j].CanonicalName {
			return out[i].CanonicalName < out[j].CanonicalName
		}
		return out[i].RawName < out[j].RawName
	})
	return out
}

// UnmappedNames returns the unique raw names with no canonical name yet, in
// order of first appearance.
func (c *Collection) UnmappedNames() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range c.Records {
		if r.Mapped() || !r.Valid() {
			continue
		}
		if _, ok := seen[r.RawName]; ok {
			continue
		}
		seen[r.RawName] = struct{}{}
		out = append(out, r.RawName)
	}
	return out
}

// ApplyCorrections sets the canonical name on every record whose raw name
// matches a correction key under NormalizeTestName. Records already mapped are
// left alone. Returns the number of records updated.
func (c *Collection) ApplyCorrections(corrections map[string]string) int {
	if len(corrections) == 0 {
		return 0
	}
	normalized := make(map[string]string, len(corrections))
	for raw, canonical := range corrections {
		normalized[NormalizeTestName(raw)] = canonical
	}
	updated := 0
	for _, r := range c.Records {
		if r.Mapped() || !r.Valid() {
			continue
		}
		if canonical, ok := normalized[NormalizeTestName(r.RawName)]; ok {
			name := canonical
			r.CanonicalName = &name
			updated++
		}
	}
	return updated
}

// Clone returns a deep copy of the collection.
func (c *Collection) Clone() *Collection {
	out := &Collection{Records: make([]*LabResult, len(c.Records))}
	for i, r := range c.Records {
		cp := *r
		if r.CanonicalName != nil {
			v := *r.CanonicalName
			cp.CanonicalName = &v
		}
		if r.Unit != nil {
			v := *r.Unit
			cp.Unit = &v
		}
		if r.Classification != nil {
			v := *r.Classification
			cp.Classification = &v
		}
		if r.Reason != nil {
			v := *r.Reason
			cp.Reason = &v
		}
		if r.Recommendation != nil {
			v := *r.Recommendation
			cp.Recommendation = &v
		}
		out.Records[i] = &cp
	}
	return out
}

// Describe returns a human-readable dump of the collection for debug logging.
func (c *Collection) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total lab results: %d\n", len(c.Records))
	for i, r := range c.Records {
		canonical := ""
		if r.CanonicalName != nil {
			canonical = *r.CanonicalName
		}
		fmt.Fprintf(&b, "#%d %s | %s -> %q = %s\n",
			i+1, r.TestDate.Format("2006-01-02"), r.RawName, canonical, r.Value)
	}
	return b.String()
}
