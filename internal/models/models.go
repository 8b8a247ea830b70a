package models

import (
	"fmt"
	"path/filepath"
)

// ItemDescriptor is a snapshot of one remote lesson.
type ItemDescriptor struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Position     int    `json:"position"` // 1-based, unique and contiguous within the collection
	CollectionID int    `json:"collectionId"`
	Status       string `json:"status,omitempty"`
}

func (i ItemDescriptor) String() string {
	return fmt.Sprintf("%q (#%d)", i.Title, i.ID)
}

// CollectionSnapshot is the ordered item list of one collection, in the order the platform returned it.
type CollectionSnapshot struct {
	CollectionID int              `json:"collectionId"`
	Items        []ItemDescriptor `json:"items"`
}

// IDs returns the item ids in snapshot order.
func (s *CollectionSnapshot) IDs() []int {
	ids := make([]int, len(s.Items))
	for i, item := range s.Items {
		ids[i] = item.ID
	}
	return ids
}

// Lookup indexes items by id.
func (s *CollectionSnapshot) Lookup() map[int]ItemDescriptor {
	byID := make(map[int]ItemDescriptor, len(s.Items))
	for _, item := range s.Items {
		byID[item.ID] = item
	}
	return byID
}

// Titles returns the set of item titles.
func (s *CollectionSnapshot) Titles() map[string]bool {
	titles := make(map[string]bool, len(s.Items))
	for _, item := range s.Items {
		titles[item.Title] = true
	}
	return titles
}

// MoveOperation asks the platform to place one item at TargetPosition (1-based).
//
// The platform renumbers every other item as a side effect, so a sequence of moves only
// produces the intended order when applied strictly in the order it was planned.
type MoveOperation struct {
	ID             int `json:"id"`
	TargetPosition int `json:"position"`
}

// PairingCandidate associates a left path (text) with a right path (audio).
// An empty path means that side is absent.
type PairingCandidate struct {
	Left  string
	Right string
}

func (p PairingCandidate) HasLeft() bool  { return p.Left != "" }
func (p PairingCandidate) HasRight() bool { return p.Right != "" }

// Matched reports whether both sides are present.
func (p PairingCandidate) Matched() bool { return p.HasLeft() && p.HasRight() }

// Stem returns the file stem of the left path, falling back to the right path.
func (p PairingCandidate) Stem() string {
	path := p.Left
	if path == "" {
		path = p.Right
	}
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// LessonUpload is the content of a new lesson. Audio is optional.
type LessonUpload struct {
	Title     string
	Text      string
	AudioName string
	Audio     []byte
	Status    string // sharing status, "private" when empty
}
