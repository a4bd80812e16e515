// Package ingest turns uploaded patient files into assessed triage records.
//
// Supported inputs are delimited text (.csv, .tsv, .txt), JSON (.json) and
// spreadsheets (.xlsx). Every format is reduced to rows keyed by a canonical
// column name, and every admitted row becomes one patient scored by
// triage.Assess. Missing or unparseable fields fall back to fixed defaults;
// a file that cannot be parsed at all yields zero records rather than an
// error.
package ingest
