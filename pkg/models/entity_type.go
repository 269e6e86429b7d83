package models

// EntityType classifies a named entity extracted from an article
type EntityType string

const (
	EntityTypeCryptocurrency EntityType = "cryptocurrency"
	EntityTypeBlockchain     EntityType = "blockchain"
	EntityTypeProtocol       EntityType = "protocol"
	EntityTypeCompany        EntityType = "company"
	EntityTypePerson         EntityType = "person"
	EntityTypeLocation       EntityType = "location"
	EntityTypeConcept        EntityType = "concept"
)

// Legacy entity type values still present in older mention records.
// The vocabulary migrated; these stay readable until the backfill
// migration has run everywhere.
const (
	legacyTypeProject EntityType = "project"
	legacyTypeTicker  EntityType = "ticker"
	legacyTypeEvent   EntityType = "event"
)

var legacyTypeAliases = map[EntityType]EntityType{
	legacyTypeProject: EntityTypeProtocol,
	legacyTypeTicker:  EntityTypeCryptocurrency,
	legacyTypeEvent:   EntityTypeConcept,
}

// NormalizeEntityType maps legacy vocabulary values onto the current
// vocabulary. Unknown values pass through unchanged so that a bad
// record degrades to a filter miss, not a crash.
func NormalizeEntityType(t EntityType) EntityType {
	if current, ok := legacyTypeAliases[t]; ok {
		return current
	}
	return t
}

// IsValidEntityType reports whether t is a known value in either the
// current or the legacy vocabulary.
func IsValidEntityType(t EntityType) bool {
	switch t {
	case EntityTypeCryptocurrency, EntityTypeBlockchain, EntityTypeProtocol,
		EntityTypeCompany, EntityTypePerson, EntityTypeLocation, EntityTypeConcept:
		return true
	}
	_, legacy := legacyTypeAliases[t]
	return legacy
}
