package model

// SourceKind names where an entity's schema-field values originate.
type SourceKind string

const (
	SourceFaker     SourceKind = "faker"
	SourceCSV       SourceKind = "csv"
	SourceGenerator SourceKind = "generator"
)

// Distribution names the statistical law the Reference Pool samples a
// parent ID under.
type Distribution string

const (
	DistUniform Distribution = "uniform"
	DistZipf    Distribution = "zipf"
)

// ReferenceSpec describes a foreign-key relationship: which entity and ID
// field to sample from, under which distribution, and whether sampling
// should be biased toward recently appended IDs.
type ReferenceSpec struct {
	References      string       // "<entity>.<id_field>"
	Distribution    Distribution // default uniform
	Alpha           float64      // zipf exponent, default 1.0
	RecencyBias     bool
	MaxDelayMinutes int // observability metadata only, per spec.md §9

	Entity  string // parsed from References
	IDField string // parsed from References
}

// FieldKind is the tag of a FieldDescriptor's variant.
type FieldKind string

const (
	FieldFaker     FieldKind = "faker"
	FieldString    FieldKind = "string"
	FieldUUID      FieldKind = "uuid"
	FieldInt       FieldKind = "int"
	FieldFloat     FieldKind = "float"
	FieldTimestamp FieldKind = "timestamp"
	FieldChoice    FieldKind = "choice"
	FieldReference FieldKind = "reference"
)

// FieldDescriptor is the tagged-variant configuration for one field of an
// entity's schema, relationships, or derived-fields map. Exactly the
// attributes relevant to Kind are populated; the rest are zero.
type FieldDescriptor struct {
	Kind FieldKind

	// faker
	Method string

	// string: either a {seq:NNd}/{name}-token template, or a bare
	// constant when no template tokens are present.
	Format string

	// int / float
	Min float64
	Max float64

	// timestamp
	TimeFormat string // only "iso8601" required by spec.md §3

	// choice
	Choices []string

	// reference (derived-field use, distinct from ReferenceSpec's
	// relationship use): source is "<entity>.<field>", via names the
	// local foreign-key field already bound earlier in record build.
	Source string
	Via    string

	SourceEntity string // parsed from Source
	SourceField  string // parsed from Source
}

// EntityDescriptor is a named record stream as declared under master_data
// or transactional_data.
type EntityDescriptor struct {
	Name string

	KafkaTopic    string
	IDField       string
	KeyField      string
	Source        SourceKind
	BulkLoad      bool
	Count         int // exact count for bulk-loaded masters
	HasCount      bool
	MaxMessages   int // cap for transactional streams, applied only when HasMaxMsgs
	HasMaxMsgs    bool
	RatePerSecond float64 // 0 = unbounded
	TrackRecent   bool

	Schema        map[string]*FieldDescriptor
	SchemaOrder   []string // declaration order, for deterministic builds
	Relationships map[string]*ReferenceSpec
	RelOrder      []string
	DerivedFields map[string]*FieldDescriptor
	DerivedOrder  []string

	// NestedFields groups flat field names into a nested sub-message for
	// schema-framed binary encoding (spec.md §4.E). Key is the nested
	// message name (e.g. "address"), value is the set of flat field
	// names it absorbs.
	NestedFields map[string][]string
}

// SetSchemaField appends a schema field in declaration order.
func (e *EntityDescriptor) SetSchemaField(name string, fd *FieldDescriptor) {
	if e.Schema == nil {
		e.Schema = make(map[string]*FieldDescriptor)
	}
	if _, exists := e.Schema[name]; !exists {
		e.SchemaOrder = append(e.SchemaOrder, name)
	}
	e.Schema[name] = fd
}

// SetRelationship appends a relationship in declaration order.
func (e *EntityDescriptor) SetRelationship(name string, rs *ReferenceSpec) {
	if e.Relationships == nil {
		e.Relationships = make(map[string]*ReferenceSpec)
	}
	if _, exists := e.Relationships[name]; !exists {
		e.RelOrder = append(e.RelOrder, name)
	}
	e.Relationships[name] = rs
}

// SetDerivedField appends a derived field in declaration order.
func (e *EntityDescriptor) SetDerivedField(name string, fd *FieldDescriptor) {
	if e.DerivedFields == nil {
		e.DerivedFields = make(map[string]*FieldDescriptor)
	}
	if _, exists := e.DerivedFields[name]; !exists {
		e.DerivedOrder = append(e.DerivedOrder, name)
	}
	e.DerivedFields[name] = fd
}

// BrokerSecurityProtocol enumerates the broker-config security.protocol
// values spec.md §6 names.
type BrokerSecurityProtocol string

const (
	SecurityPlaintext     BrokerSecurityProtocol = "PLAINTEXT"
	SecuritySSL           BrokerSecurityProtocol = "SSL"
	SecuritySASLPlaintext BrokerSecurityProtocol = "SASL_PLAINTEXT"
	SecuritySASLSSL       BrokerSecurityProtocol = "SASL_SSL"
)

// BrokerConfig is the separate key-value document spec.md §6 defines.
type BrokerConfig struct {
	BootstrapServers  []string
	SecurityProtocol  BrokerSecurityProtocol
	SASLMechanism     string
	SASLUsername      string
	SASLPassword      string
	SSLCALocation     string
	SSLCertLocation   string
	SSLKeyLocation    string
	SchemaRegistryURL string
}
