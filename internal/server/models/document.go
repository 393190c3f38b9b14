package models

import (
	"net/netip"
	"slices"
	"time"

	"github.com/dmitrijs2005/turing/internal/common"
)

// Handle identifies a document. Names are unique per owner only.
type Handle struct {
	Name  string
	Owner string
}

func (h Handle) String() string {
	return h.Name + "@" + h.Owner
}

// Document is the registry record of one multi-section document.
type Document struct {
	Handle    Handle
	Coauthors []string
	// Locks has one entry per section; true means a session is editing it.
	// Its length is the section count and never changes.
	Locks []bool
	// Location is the storage namespace holding the section units.
	Location string
	// Chat is the chat channel address, invalid until the first edit.
	Chat      netip.Addr
	CreatedAt time.Time
}

// NewDocument builds the record of a document with count unlocked sections.
func NewDocument(h Handle, count int, location string) *Document {
	return &Document{
		Handle:    h,
		Locks:     make([]bool, count),
		Location:  location,
		CreatedAt: time.Now(),
	}
}

// Clone returns a deep copy safe to modify.
func (d *Document) Clone() *Document {
	c := *d
	c.Coauthors = slices.Clone(d.Coauthors)
	c.Locks = slices.Clone(d.Locks)
	return &c
}

func (d *Document) Name() string      { return d.Handle.Name }
func (d *Document) Author() string    { return d.Handle.Owner }
func (d *Document) SectionCount() int { return len(d.Locks) }

// ValidSection reports whether section (1-based) exists.
func (d *Document) ValidSection(section int) bool {
	return section >= 1 && section <= len(d.Locks)
}

// IsLocked reports whether section (1-based) is being edited.
func (d *Document) IsLocked(section int) bool {
	return d.ValidSection(section) && d.Locks[section-1]
}

// LockedSections returns the 1-based indexes of all locked sections.
func (d *Document) LockedSections() []int {
	var out []int
	for i, locked := range d.Locks {
		if locked {
			out = append(out, i+1)
		}
	}
	return out
}

// WithSectionLocked returns a copy with section locked.
func (d *Document) WithSectionLocked(section int) (*Document, error) {
	if !d.ValidSection(section) {
		return nil, common.ErrSectionOutOfRange
	}
	if d.Locks[section-1] {
		return nil, common.ErrSectionLocked
	}
	c := d.Clone()
	c.Locks[section-1] = true
	return c, nil
}

// WithSectionUnlocked returns a copy with section unlocked.
func (d *Document) WithSectionUnlocked(section int) (*Document, error) {
	if !d.ValidSection(section) {
		return nil, common.ErrSectionOutOfRange
	}
	if !d.Locks[section-1] {
		return nil, common.ErrSectionNotLocked
	}
	c := d.Clone()
	c.Locks[section-1] = false
	return c, nil
}

// WithCoauthor returns a copy listing userName as co-author.
func (d *Document) WithCoauthor(userName string) *Document {
	c := d.Clone()
	if !slices.Contains(c.Coauthors, userName) {
		c.Coauthors = append(c.Coauthors, userName)
	}
	return c
}
