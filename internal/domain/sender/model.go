package sender

import (
	"sort"
	"strings"
	"time"
)

// Importance ranks how much attention a sender deserves
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceNormal Importance = "normal"
	ImportanceLow    Importance = "low"
)

// Role describes the sender's relationship to the user
type Role string

const (
	RoleStudent      Role = "student"
	RoleCollaborator Role = "collaborator"
	RoleAdmin        Role = "admin"
	RoleFamily       Role = "family"
	RoleNotification Role = "notification"
	RoleOther        Role = "other"
)

// Profile is the persistent record for one correspondent
type Profile struct {
	Email      string     `json:"email"`
	Name       string     `json:"name,omitempty"`
	Importance Importance `json:"importance"`
	Role       Role       `json:"role"`
	Pinned     bool       `json:"pinned"`
	Notes      string     `json:"notes,omitempty"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

// Directory holds profiles keyed by normalized address
type Directory map[string]Profile

// Patch carries the fields of an upsert. Nil means absent.
//
// Pin and Unpin are separate flags: leaving both false never changes the
// stored pinned value, and only Unpin can clear it.
type Patch struct {
	Email      string
	Name       *string
	Importance *Importance
	Role       *Role
	Notes      *string
	Pin        bool
	Unpin      bool
}

// Sighting records that a sender appeared in the current run's messages.
type Sighting struct {
	Email string
	Name  string
}

// NormalizeAddress returns the directory key for an address.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// NewProfile returns a profile with documented defaults.
func NewProfile(email string) Profile {
	return Profile{
		Email:      NormalizeAddress(email),
		Importance: ImportanceNormal,
		Role:       RoleOther,
	}
}

// Merge overwrites the fields present in the patch. Absent fields are kept.
func (p *Profile) Merge(patch Patch) {
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Importance != nil {
		p.Importance = *patch.Importance
	}
	if patch.Role != nil {
		p.Role = *patch.Role
	}
	if patch.Notes != nil {
		p.Notes = *patch.Notes
	}
	switch {
	case patch.Unpin:
		p.Pinned = false
	case patch.Pin:
		p.Pinned = true
	}
}

// Seen advances LastSeenAt, never moving it backwards.
func (p *Profile) Seen(at time.Time) {
	if p.LastSeenAt != nil && !at.After(*p.LastSeenAt) {
		return
	}
	t := at
	p.LastSeenAt = &t
}

// Clone deep-copies the directory.
func (d Directory) Clone() Directory {
	out := make(Directory, len(d))
	for k, p := range d {
		if p.LastSeenAt != nil {
			t := *p.LastSeenAt
			p.LastSeenAt = &t
		}
		out[k] = p
	}
	return out
}

// Upsert merges a patch into the directory, creating the profile if needed.
func (d Directory) Upsert(patch Patch) (Profile, bool) {
	key := NormalizeAddress(patch.Email)
	p, ok := d[key]
	if !ok {
		p = NewProfile(key)
	}
	p.Merge(patch)
	d[key] = p
	return p, !ok
}

// Touch records a sighting, creating a default profile for new senders.
func (d Directory) Touch(s Sighting, at time.Time) {
	key := NormalizeAddress(s.Email)
	if key == "" {
		return
	}
	p, ok := d[key]
	if !ok {
		p = NewProfile(key)
	}
	if p.Name == "" && strings.TrimSpace(s.Name) != "" {
		p.Name = strings.TrimSpace(s.Name)
	}
	p.Seen(at)
	d[key] = p
}

// Sorted returns profiles ordered pinned first, then by importance and address.
func (d Directory) Sorted() []Profile {
	out := make([]Profile, 0, len(d))
	for _, p := range d {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		if ra, rb := importanceRank(a.Importance), importanceRank(b.Importance); ra != rb {
			return ra > rb
		}
		return a.Email < b.Email
	})
	return out
}

func importanceRank(i Importance) int {
	switch i {
	case ImportanceHigh:
		return 2
	case ImportanceNormal:
		return 1
	default:
		return 0
	}
}
