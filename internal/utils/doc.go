// Package utils provides shared utility functions.
//
// These utilities are used across multiple packages and include branch
// naming, sanitization and validation.
package utils
