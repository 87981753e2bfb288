package order

// Strategy is one way of grouping lexed items into categories. A strategy
// that does not apply returns no categories and extraction falls through
// to the next one.
type Strategy struct {
	Name  string
	apply func(e *Extractor, chunks []chunk) []Category
}

var (
	// DenseAnchor handles speech that lists category names up front or
	// mentions loose quantities. Only labels immediately followed by a
	// dimension become anchors; every item up to the next anchor belongs
	// to the current one.
	DenseAnchor = Strategy{Name: "dense-anchor", apply: denseAnchor}

	// LabeledRuns opens a category at each label followed by a colon, or
	// by a dimension before the next label.
	LabeledRuns = Strategy{Name: "labeled-runs", apply: labeledRuns}

	// Flat puts every item in the default category.
	Flat = Strategy{Name: "flat", apply: flat}
)

// DefaultStrategies returns the strategies in the order Extract tries them.
func DefaultStrategies() []Strategy {
	return []Strategy{DenseAnchor, LabeledRuns, Flat}
}

func denseAnchor(e *Extractor, chunks []chunk) []Category {
	if !isDense(chunks) {
		return nil
	}

	b := newCategoryBuilder()
	current := e.defaultCategory
	anchored := false
	for i, c := range chunks {
		switch c.kind {
		case chunkLabel:
			if isAnchor(chunks, i) {
				current = c.text
				anchored = true
			}
		case chunkItem:
			b.add(current, c.item)
		}
	}
	if !anchored {
		return nil
	}
	return b.result()
}

func isDense(chunks []chunk) bool {
	labels := 0
	seenDimension := false
	for _, c := range chunks {
		switch {
		case c.kind == chunkLoose:
			return true
		case c.isDimension():
			seenDimension = true
		case c.kind == chunkLabel && !seenDimension:
			labels++
		}
	}
	return labels >= 2
}

func isAnchor(chunks []chunk, i int) bool {
	j := i + 1
	if j < len(chunks) && chunks[j].kind == chunkColon {
		j++
	}
	return j < len(chunks) && chunks[j].isDimension()
}

func labeledRuns(e *Extractor, chunks []chunk) []Category {
	b := newCategoryBuilder()
	current := e.defaultCategory
	opened := false
	for i, c := range chunks {
		switch c.kind {
		case chunkLabel:
			if opensRun(chunks, i) {
				current = c.text
				opened = true
			}
		case chunkItem:
			b.add(current, c.item)
		}
	}
	if !opened {
		return nil
	}
	return b.result()
}

func opensRun(chunks []chunk, i int) bool {
	if i+1 < len(chunks) && chunks[i+1].kind == chunkColon {
		return true
	}
	for _, c := range chunks[i+1:] {
		switch {
		case c.isDimension():
			return true
		case c.kind == chunkLabel:
			return false
		}
	}
	return false
}

func flat(e *Extractor, chunks []chunk) []Category {
	b := newCategoryBuilder()
	for _, c := range chunks {
		if c.kind == chunkItem {
			b.add(e.defaultCategory, c.item)
		}
	}
	return b.result()
}
