package export

// Structure is the shape a payload is rendered as.
type Structure int

const (
	// StructureKeyValue payloads are flattened and rendered as a two-column "Field" / "Value" table.
	StructureKeyValue Structure = iota
	// StructureTable payloads are arrays of records rendered with one row per record.
	StructureTable
)

func (s Structure) String() string {
	if s == StructureTable {
		return "table"
	}
	return "keyvalue"
}

// DetectStructure classifies `data`: StructureTable iff it is a non-empty array whose first element is an object.
// Only the first element is inspected. A null first element is not an object.
func DetectStructure(data any) Structure {
	items, ok := data.([]any)
	if !ok || len(items) == 0 {
		return StructureKeyValue
	}
	if isObject(items[0]) {
		return StructureTable
	}
	return StructureKeyValue
}
