// Package dataset discovers effect size images in a BIDS derivatives
// tree, parses acquisition entities from their names and applies
// quality-control exclusions.
package dataset

import (
	"fmt"
	"strings"
)

// File describes one effect size image together with the entities
// parsed from its name.
type File struct {
	// Path is where the image lives. Empty for names parsed in
	// isolation.
	Path string

	// Subject, Session and Run are the BIDS entities with their
	// prefixes, e.g. "sub-s03", "ses-02", "run-01". Run indices are
	// zero padded to two digits.
	Subject string
	Session string
	Run     string

	// Task is the bare task name, e.g. "nBack".
	Task string

	// Contrast is the combined contrast key, e.g.
	// "task-nBack_contrast-twoBack-oneBack". Contrast values may
	// themselves contain underscores and hyphens.
	Contrast string
}

// ExclusionKey returns the quality-control lookup key
// "{subject}_{session}_{task}_{run}", with the bare task name.
func (f File) ExclusionKey() string {
	return fmt.Sprintf("%s_%s_%s_%s", f.Subject, f.Session, f.Task, f.Run)
}

// RecordName returns the store record name "{subject}_{session}_{run}".
func (f File) RecordName() string {
	return fmt.Sprintf("%s_%s_%s", f.Subject, f.Session, f.Run)
}

// ParseError reports the entities missing from a file name.
type ParseError struct {
	Name    string
	Missing []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dataset: %s: missing %s", e.Name, strings.Join(e.Missing, ", "))
}

// ParseName extracts the acquisition entities from an effect size
// file name. Entities may appear in any order. The combined contrast
// key joins the task and contrast entities, with the contrast value
// running up to the "_rtmodel-" or "_stat-" entity that follows it.
// Single-digit run indices are zero padded, so "run-1" and "run-01"
// name the same run.
func ParseName(name string) (File, error) {
	var f File
	var missing []string

	if subject, ok := token(name, "sub-"); ok {
		f.Subject = "sub-" + subject
	} else {
		missing = append(missing, "subject")
	}

	if session, ok := token(name, "ses-"); ok {
		f.Session = "ses-" + session
	} else {
		missing = append(missing, "session")
	}

	if run, ok := runToken(name); ok {
		f.Run = "run-" + run
	} else {
		missing = append(missing, "run")
	}

	if task, contrast, ok := contrastToken(name); ok {
		f.Task = task
		f.Contrast = contrast
	} else {
		missing = append(missing, "contrast")
	}

	if len(missing) > 0 {
		return File{}, &ParseError{Name: name, Missing: missing}
	}

	return f, nil
}

// token returns the value following the first occurrence of prefix,
// up to the next underscore.
func token(name, prefix string) (string, bool) {
	idx := strings.Index(name, prefix)
	if idx < 0 {
		return "", false
	}
	value := name[idx+len(prefix):]
	if end := strings.IndexByte(value, '_'); end >= 0 {
		value = value[:end]
	}
	if value == "" {
		return "", false
	}
	return value, true
}

// runToken returns the zero-padded digits following "run-".
func runToken(name string) (string, bool) {
	idx := strings.Index(name, "run-")
	if idx < 0 {
		return "", false
	}
	rest := name[idx+len("run-"):]
	var digits int
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits == 0 {
		return "", false
	}
	value := rest[:digits]
	if len(value) < 2 {
		value = "0" + value
	}
	return value, true
}

// contrastToken assembles the combined contrast key from the task and
// contrast entities, which other entities such as the run index may
// separate. The contrast value ends at the first "_rtmodel-" or
// "_stat-" entity after it; a name carrying neither does not parse.
func contrastToken(name string) (task, contrast string, ok bool) {
	task, ok = token(name, "task-")
	if !ok {
		return "", "", false
	}

	idx := strings.Index(name, "contrast-")
	if idx < 0 {
		return "", "", false
	}
	value := name[idx+len("contrast-"):]

	term := -1
	for _, marker := range []string{"_rtmodel-", "_stat-"} {
		if i := strings.Index(value, marker); i >= 0 && (term < 0 || i < term) {
			term = i
		}
	}
	if term <= 0 {
		return "", "", false
	}
	return task, "task-" + task + "_contrast-" + value[:term], true
}
