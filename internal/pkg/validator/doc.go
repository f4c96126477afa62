// Package validator validates request structs and reports failures as a
// field to message map keyed by snake_case field names.
package validator
