package store

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"amlcore/internal/aml/matching"
	"amlcore/internal/aml/screening/models"
)

// ListInfo describes one sanctions list the service screens against.
type ListInfo struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`
	Name   string `json:"name" yaml:"name"`
}

// WatchlistStore holds the sanctions entries and PEP records in memory.
// Replace swaps the whole data set atomically.
type WatchlistStore struct {
	mu        sync.RWMutex
	lists     []ListInfo
	sanctions []models.SanctionsEntry
	peps      []models.PEPRecord
}

// NewWatchlistStore returns a store seeded with the built-in sample data.
func NewWatchlistStore() *WatchlistStore {
	s := &WatchlistStore{}
	s.Replace(defaultLists(), seedSanctions(), seedPEPs())
	return s
}

// Replace installs a new data set. Search tokens are recomputed.
func (s *WatchlistStore) Replace(lists []ListInfo, sanctions []models.SanctionsEntry, peps []models.PEPRecord) {
	for i := range sanctions {
		sanctions[i].SearchTokens = searchTokens(sanctions[i].Names())
	}
	for i := range peps {
		peps[i].SearchTokens = searchTokens(peps[i].Names())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists = lists
	s.sanctions = sanctions
	s.peps = peps
}

// SanctionsEntries returns a snapshot of every sanctions entry.
func (s *WatchlistStore) SanctionsEntries(_ context.Context) ([]models.SanctionsEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sanctions), nil
}

// PEPRecords returns a snapshot of every PEP record.
func (s *WatchlistStore) PEPRecords(_ context.Context) ([]models.PEPRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.peps), nil
}

// Lists returns the configured sanctions list IDs.
func (s *WatchlistStore) Lists() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.lists))
	for i, l := range s.lists {
		ids[i] = l.ID
	}
	return ids
}

// ListInfos returns the configured sanctions lists with their metadata.
func (s *WatchlistStore) ListInfos() []ListInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lists)
}

func searchTokens(names []string) []string {
	var tokens []string
	for _, n := range names {
		tokens = append(tokens, strings.Fields(matching.Normalize(n))...)
	}
	slices.Sort(tokens)
	return slices.Compact(tokens)
}

func defaultLists() []ListInfo {
	return []ListInfo{
		{ID: models.ListOFACSDN, Source: "OFAC", Name: "Specially Designated Nationals And Blocked Persons List"},
		{ID: models.ListUNSC, Source: "UN", Name: "UN Security Council Consolidated List"},
		{ID: models.ListEUCons, Source: "EU", Name: "EU Consolidated Financial Sanctions List"},
	}
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// Sample entries are fictional.
func seedSanctions() []models.SanctionsEntry {
	return []models.SanctionsEntry{
		{
			ListID:        models.ListOFACSDN,
			SourceID:      "SAMPLE001",
			PrimaryName:   "John Test Sanctioned",
			Aliases:       []string{"J. Sanctioned", "Johnny Sanctioned"},
			EntityType:    models.EntityIndividual,
			DateOfBirth:   date(1970, time.May, 15),
			Nationalities: []string{"XX"},
			Programs:      []string{"SDGT"},
		},
		{
			ListID:      models.ListUNSC,
			SourceID:    "SAMPLE002",
			PrimaryName: "Sample Entity Corp",
			EntityType:  models.EntityEntity,
			Programs:    []string{"UN-1267"},
		},
	}
}

func seedPEPs() []models.PEPRecord {
	return []models.PEPRecord{
		{
			ID:            "PEP001",
			FullName:      "Maria Example Minister",
			Aliases:       []string{"M. E. Minister"},
			DateOfBirth:   date(1962, time.March, 2),
			Nationalities: []string{"XX"},
			Category:      models.PEPSelf,
			Tier:          1,
			Active:        true,
			RiskLevel:     "High",
			Positions:     []models.Position{{Title: "Minister of Finance", Country: "XX", Current: true}},
			Relations: []models.Relation{
				{RecordID: "PEP002", Type: models.RelationSpouse},
				{RecordID: "PEP003", Type: models.RelationBusinessAssociate},
			},
		},
		{
			ID:            "PEP002",
			FullName:      "Peter Example Minister",
			DateOfBirth:   date(1960, time.July, 21),
			Nationalities: []string{"XX"},
			Category:      models.PEPFamilyMember,
			Tier:          2,
			Active:        true,
			RiskLevel:     "Medium",
			Relations:     []models.Relation{{RecordID: "PEP001", Type: models.RelationSpouse}},
		},
		{
			ID:            "PEP003",
			FullName:      "Carl Sample Associate",
			Nationalities: []string{"XX"},
			Category:      models.PEPCloseAssociate,
			Tier:          3,
			Active:        true,
			RiskLevel:     "Medium",
			Relations:     []models.Relation{{RecordID: "PEP001", Type: models.RelationBusinessAssociate}},
		},
		{
			ID:            "PEP004",
			FullName:      "Robert Former Governor",
			Nationalities: []string{"YY"},
			Category:      models.PEPSelf,
			Tier:          2,
			Active:        false,
			RiskLevel:     "Low",
			Positions:     []models.Position{{Title: "Governor", Country: "YY", Current: false}},
		},
	}
}

// watchlistFile is the YAML seed layout. Dates use YYYY-MM-DD.
type watchlistFile struct {
	Lists     []ListInfo `yaml:"lists"`
	Sanctions []struct {
		List          string   `yaml:"list"`
		SourceID      string   `yaml:"source_id"`
		Name          string   `yaml:"name"`
		Aliases       []string `yaml:"aliases"`
		EntityType    string   `yaml:"entity_type"`
		DateOfBirth   string   `yaml:"date_of_birth"`
		Nationalities []string `yaml:"nationalities"`
		Programs      []string `yaml:"programs"`
	} `yaml:"sanctions"`
	PEPs []struct {
		ID            string   `yaml:"id"`
		Name          string   `yaml:"name"`
		Aliases       []string `yaml:"aliases"`
		DateOfBirth   string   `yaml:"date_of_birth"`
		Nationalities []string `yaml:"nationalities"`
		Category      string   `yaml:"category"`
		Tier          int      `yaml:"tier"`
		Active        *bool    `yaml:"active"`
		RiskLevel     string   `yaml:"risk_level"`
		Positions     []struct {
			Title   string `yaml:"title"`
			Country string `yaml:"country"`
			Current bool   `yaml:"current"`
		} `yaml:"positions"`
		Relations []struct {
			ID   string `yaml:"id"`
			Type string `yaml:"type"`
		} `yaml:"relations"`
	} `yaml:"peps"`
}

// LoadWatchlistFile reads a YAML seed from path into s.
func (s *WatchlistStore) LoadWatchlistFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read watchlist file: %w", err)
	}
	return s.LoadWatchlistYAML(data)
}

// LoadWatchlistYAML replaces the store's contents with a YAML seed. Lists
// default to the built-in set when the document names none.
func (s *WatchlistStore) LoadWatchlistYAML(data []byte) error {
	var doc watchlistFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse watchlist yaml: %w", err)
	}

	lists := doc.Lists
	if len(lists) == 0 {
		lists = defaultLists()
	}

	sanctions := make([]models.SanctionsEntry, 0, len(doc.Sanctions))
	for i, e := range doc.Sanctions {
		if e.List == "" || e.Name == "" {
			return fmt.Errorf("sanctions entry %d: list and name are required", i)
		}
		dob, err := parseSeedDate(e.DateOfBirth)
		if err != nil {
			return fmt.Errorf("sanctions entry %s: %w", e.SourceID, err)
		}
		entityType := models.EntityIndividual
		if strings.EqualFold(e.EntityType, string(models.EntityEntity)) {
			entityType = models.EntityEntity
		}
		sanctions = append(sanctions, models.SanctionsEntry{
			ListID:        e.List,
			SourceID:      e.SourceID,
			PrimaryName:   e.Name,
			Aliases:       e.Aliases,
			EntityType:    entityType,
			DateOfBirth:   dob,
			Nationalities: e.Nationalities,
			Programs:      e.Programs,
		})
	}

	peps := make([]models.PEPRecord, 0, len(doc.PEPs))
	for i, p := range doc.PEPs {
		if p.ID == "" || p.Name == "" {
			return fmt.Errorf("pep record %d: id and name are required", i)
		}
		dob, err := parseSeedDate(p.DateOfBirth)
		if err != nil {
			return fmt.Errorf("pep record %s: %w", p.ID, err)
		}
		category := models.PEPCategory(p.Category)
		switch category {
		case models.PEPSelf, models.PEPFamilyMember, models.PEPCloseAssociate:
		case "":
			category = models.PEPSelf
		default:
			return fmt.Errorf("pep record %s: unknown category %q", p.ID, p.Category)
		}
		rec := models.PEPRecord{
			ID:            p.ID,
			FullName:      p.Name,
			Aliases:       p.Aliases,
			DateOfBirth:   dob,
			Nationalities: p.Nationalities,
			Category:      category,
			Tier:          p.Tier,
			Active:        p.Active == nil || *p.Active,
			RiskLevel:     p.RiskLevel,
		}
		for _, pos := range p.Positions {
			rec.Positions = append(rec.Positions, models.Position{Title: pos.Title, Country: pos.Country, Current: pos.Current})
		}
		for _, rel := range p.Relations {
			rec.Relations = append(rec.Relations, models.Relation{RecordID: rel.ID, Type: models.RelationType(rel.Type)})
		}
		peps = append(peps, rec)
	}

	s.Replace(lists, sanctions, peps)
	return nil
}

func parseSeedDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, fmt.Errorf("invalid date_of_birth %q: %w", v, err)
	}
	return &t, nil
}
