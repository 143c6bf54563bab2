package databrowser

// Constraints maps attribute names to accepted values. One value is an
// exact match, several values match any of them. A key ending in "_not_"
// excludes the values instead (indexed search only).
type Constraints map[string][]string

// SearchOptions control Search, Facets and FileSearch.
type SearchOptions struct {
	// AllVersions disables latest-version filtering.
	AllVersions bool
	// Metadata emits one leading Result carrying the match count (Search only).
	Metadata bool
	// BatchSize overrides the client's index page size (Search only).
	BatchSize int
}

// Metadata summarises an indexed search.
type Metadata struct {
	NumFound int    `json:"numFound"`
	Start    int    `json:"start"`
	SearchID string `json:"search_id,omitempty"`
}

// Result is one element of an indexed search stream. Exactly one of
// Metadata and Path is set.
type Result struct {
	Metadata *Metadata      `json:"metadata,omitempty"`
	Path     string         `json:"file,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// FacetValue is a distinct attribute value and its file count.
type FacetValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Facets maps attribute names to their values.
type Facets map[string][]FacetValue

// Candidate is an archive file bound to a naming template.
type Candidate struct {
	Template string            `json:"template"`
	Path     string            `json:"path"`
	Dataset  string            `json:"dataset"`
	Version  string            `json:"version,omitempty"`
	Parts    map[string]string `json:"parts"`
}

// Template declares an archive naming convention.
type Template struct {
	ID                    string
	RootDir               string
	PathParts             []string
	DatasetParts          []string
	VersionedDatasetParts []string // empty: not versioned
	VersionPart           string
	FileNameParts         []string
	FileNameDelimiter     string
	FileSuffix            string
	TimeParts             []string
	TimeDelimiter         string
	NoTimeSentinel        string
	Defaults              map[string]string
}

// TemplateInfo describes a registered template.
type TemplateInfo struct {
	ID        string
	RootDir   string
	PathParts []string
	Versioned bool
	Defaults  map[string]string
}
