// Package dataset loads CSV input into [models.Dataset] values.
//
// Headers become element names (trimmed, lowercased, spaces to underscores, punctuation removed)
// and every cell stays a string. Page CSVs are truncated to the configured field length and
// checked against the reserved-name list; option list CSVs must carry the five option columns.
package dataset
