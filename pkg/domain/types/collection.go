package types

// CollectionName identifies one similarity-searchable collection of indexed chunks
type CollectionName string

const (
	// CollectionDependencyTree holds chunks of `gradle dependencies` / `mvn dependency:tree` output
	CollectionDependencyTree CollectionName = "risk-evaluation-dependency-tree"
	// CollectionClassDependency holds chunks of `jdeps -v` output
	CollectionClassDependency CollectionName = "risk-evaluation-class-level-dependency"
)

// String returns the collection name as a plain string
func (c CollectionName) String() string {
	return string(c)
}

// EnrichMode selects how the commit-enrichment stage resolves last commit information
type EnrichMode string

const (
	EnrichModeAgent  EnrichMode = "agent"
	EnrichModeDirect EnrichMode = "direct"
	EnrichModeNone   EnrichMode = "none"
)

// Validate checks that the mode is one of the supported values
func (m EnrichMode) Validate() bool {
	switch m {
	case EnrichModeAgent, EnrichModeDirect, EnrichModeNone:
		return true
	default:
		return false
	}
}
