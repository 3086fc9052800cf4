package store

import "time"

// Article is the normalized shape every feature works with. ID is the
// Wikipedia page id and is the sole deduplication key everywhere.
type Article struct {
	ID        int64
	Title     string
	Excerpt   string
	Thumbnail string
	SavedAt   time.Time
	ViewedAt  time.Time
}

type Interest struct {
	Name    string    `json:"name"`
	AddedAt time.Time `json:"addedAt"`
}

// Preferences is a single versioned record; interests have set semantics
// (at most one entry per name).
type Preferences struct {
	Version   int        `json:"version"`
	Interests []Interest `json:"interests"`
}

func (p *Preferences) HasInterest(name string) bool {
	for _, i := range p.Interests {
		if i.Name == name {
			return true
		}
	}
	return false
}
