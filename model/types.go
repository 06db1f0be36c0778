package model

import (
	"fmt"
	"slices"
	"strings"
)

// Record holds the voxel values extracted from one acquisition (a
// single subject, session and run) for one parcel.
type Record struct {
	// Subject is the BIDS subject entity, e.g. "sub-s03".
	Subject string `json:"subject"`

	// Session is the BIDS session entity, e.g. "ses-02".
	Session string `json:"session"`

	// Run is the BIDS run entity with a zero padded index, e.g. "run-01".
	Run string `json:"run"`

	// Voxels are the effect size values of the parcel's voxels.
	Voxels []float64 `json:"-"`

	// Mean is the mean of Voxels, derived when the record enters a store.
	Mean float64 `json:"mean"`
}

// Name returns the canonical record name, e.g. "sub-s03_ses-02_run-01".
func (r Record) Name() string {
	return fmt.Sprintf("%s_%s_%s", r.Subject, r.Session, r.Run)
}

// Compare orders records by subject, then session, then run.
func (r Record) Compare(other Record) int {
	if c := strings.Compare(r.Subject, other.Subject); c != 0 {
		return c
	}
	if c := strings.Compare(r.Session, other.Session); c != 0 {
		return c
	}
	return strings.Compare(r.Run, other.Run)
}

// SortRecords sorts records in place into canonical order. See
// Record.Compare for the ordering.
func SortRecords(records []Record) {
	slices.SortFunc(records, Record.Compare)
}

// Key identifies one unit of work in the similarity pipeline: a
// contrast together with a parcel.
type Key struct {
	// Contrast is the contrast key, e.g. "task-nBack_contrast-twoBack-oneBack".
	Contrast string `json:"contrast"`

	// Parcel is the atlas parcel name.
	Parcel string `json:"parcel"`
}

// String returns the key in "contrast/parcel" form.
func (k Key) String() string {
	return k.Contrast + "/" + k.Parcel
}
