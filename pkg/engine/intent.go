package engine

import "github.com/aretw0/glossa/pkg/core"

// intent is a tentative change to a note: apply installs it, invert undoes it.
// Both are pure so a failed request can be rolled back without ad hoc code.
type intent struct {
	apply  func(core.Note) core.Note
	invert func(core.Note) core.Note
}

func favoriteIntent(to bool) intent {
	return intent{
		apply: func(n core.Note) core.Note {
			n.IsFavorite = to
			return n
		},
		invert: func(n core.Note) core.Note {
			n.IsFavorite = !to
			return n
		},
	}
}
