package models

import (
	"strings"
	"time"
)

// EntityType distinguishes people from organisations on sanctions lists.
type EntityType string

const (
	EntityIndividual EntityType = "Individual"
	EntityEntity     EntityType = "Entity"
)

// Sanctions list identifiers.
const (
	ListOFACSDN = "OFAC_SDN"
	ListUNSC    = "UN_SC"
	ListEUCons  = "EU_CONS"
	// ListPEP labels results produced against the PEP record set.
	ListPEP = "PEP"
)

// SanctionsEntry is one designated person or organisation on a sanctions list.
type SanctionsEntry struct {
	ListID        string
	SourceID      string
	PrimaryName   string
	Aliases       []string
	EntityType    EntityType
	DateOfBirth   *time.Time
	Nationalities []string
	Programs      []string
	SearchTokens  []string
}

// Names returns the primary name followed by every alias.
func (e SanctionsEntry) Names() []string {
	return append([]string{e.PrimaryName}, e.Aliases...)
}

// PEPCategory says how a record relates to political exposure.
type PEPCategory string

const (
	PEPSelf           PEPCategory = "Self"
	PEPFamilyMember   PEPCategory = "FamilyMember"
	PEPCloseAssociate PEPCategory = "CloseAssociate"
)

// RelationType labels a link between two PEP records.
type RelationType string

const (
	RelationSpouse            RelationType = "Spouse"
	RelationChild             RelationType = "Child"
	RelationParent            RelationType = "Parent"
	RelationSibling           RelationType = "Sibling"
	RelationBusinessAssociate RelationType = "BusinessAssociate"
)

// Position is a public function held by a PEP.
type Position struct {
	Title   string
	Country string
	Current bool
}

// Relation points at another PEP record. Relations are followed one hop
// only; they are never resolved transitively.
type Relation struct {
	RecordID string
	Type     RelationType
}

// PEPRecord is one politically exposed person, relative or associate.
type PEPRecord struct {
	ID            string
	FullName      string
	Aliases       []string
	DateOfBirth   *time.Time
	Nationalities []string
	Category      PEPCategory
	Tier          int
	Active        bool
	RiskLevel     string
	Positions     []Position
	Relations     []Relation
	SearchTokens  []string
}

// Names returns the full name followed by every alias.
func (p PEPRecord) Names() []string {
	return append([]string{p.FullName}, p.Aliases...)
}

// IsRelative reports whether the record is a family member or close associate
// rather than the exposed person.
func (p PEPRecord) IsRelative() bool {
	return p.Category == PEPFamilyMember || p.Category == PEPCloseAssociate
}

// PositionTitles lists the record's positions, current ones marked.
func (p PEPRecord) PositionTitles() string {
	titles := make([]string, 0, len(p.Positions))
	for _, pos := range p.Positions {
		t := pos.Title
		if pos.Country != "" {
			t += " (" + pos.Country + ")"
		}
		if pos.Current {
			t += " [current]"
		}
		titles = append(titles, t)
	}
	return strings.Join(titles, "; ")
}
