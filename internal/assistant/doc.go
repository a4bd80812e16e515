// Package assistant implements the clinical support chat: a bounded
// tool-using loop between an LLM provider and the patient tools.
package assistant
