package cv

// Template names a marker image and how it should be searched for
type Template struct {
	Name      string
	Path      string
	Threshold float64
	Scales    []float64
	Region    *Region
}

// WithThreshold returns a copy searched at threshold
func (t Template) WithThreshold(threshold float64) Template {
	t.Threshold = threshold
	return t
}

// WithScales returns a copy tried at scales, in order
func (t Template) WithScales(scales ...float64) Template {
	t.Scales = append([]float64(nil), scales...)
	return t
}

// Within returns a copy limited to region; an unordered region is ignored
func (t Template) Within(region Region) Template {
	if !region.Valid() {
		t.Region = nil
		return t
	}
	t.Region = &region
	return t
}

// Search converts the template settings into search parameters
func (t Template) Search() Search {
	s := Search{Threshold: t.Threshold, Scales: t.Scales}
	if t.Region != nil {
		rect := t.Region.Rect()
		s.Region = &rect
	}
	return s
}
