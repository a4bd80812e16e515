// Package triage provides the business boundary for patient triage. It
// defines the risk assessor (Assess), the session Board, the Service
// (upload, ranking, stats, high-risk notification), the Store interface and
// the domain models.
package triage
