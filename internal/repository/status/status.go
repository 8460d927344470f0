// Package status persists the last processing outcome per object key.
// Every backend replaces the whole record on Upsert; no history is kept.
package status

import "errors"

var ErrNotFound = errors.New("status record not found")
