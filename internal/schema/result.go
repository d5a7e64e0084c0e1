package schema

// Kind classifies a validation outcome.
type Kind int

const (
	Skipped Kind = iota
	Valid
	MalformedJSON
	SchemaInvalid
	DataInvalid
)

func (k Kind) String() string {
	switch k {
	case Skipped:
		return "skipped"
	case Valid:
		return "valid"
	case MalformedJSON:
		return "malformed_json"
	case SchemaInvalid:
		return "schema_invalid"
	case DataInvalid:
		return "data_invalid"
	default:
		return "unknown"
	}
}

// Result is the logged outcome of validating a request body.
type Result struct {
	Kind   Kind
	Reason string
}
