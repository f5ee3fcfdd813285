// Package export turns an arbitrary JSON report payload into a downloadable file.
//
// The pipeline is the same for every output format:
//
//	payload -> DetectStructure -> (Flatten) -> BuildTable -> RenderSpreadsheet | RenderPDF
//
// Array payloads whose first element is an object are rendered as a table with one row per
// element. Anything else is flattened into "Field" / "Value" pairs. Both renderers consume
// the same *Table and style it from the same Theme.
//
// Payloads are decoded into ordered maps so that columns and fields keep the order in which
// they appear in the JSON document.
package export
