package dataset

import (
	"fmt"
	"path/filepath"
)

// effectSizePattern matches the first-level output layout
// <subject>/<session>/indiv_contrasts/<name>_stat-effect-size.nii.gz.
const effectSizePattern = "*/indiv_contrasts/*effect-size.nii.gz"

// Discover collects the effect size images of the given subjects
// under inputDir. Files whose names do not parse are returned in
// skipped instead of aborting the walk. Results come back in
// deterministic path order.
func Discover(inputDir string, subjects []string) (files []File, skipped []string, err error) {
	for _, subject := range subjects {
		pattern := filepath.Join(inputDir, subject, effectSizePattern)
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, nil, fmt.Errorf("dataset: glob %s: %w", pattern, err)
		}

		for _, path := range matches {
			f, err := ParseName(filepath.Base(path))
			if err != nil {
				skipped = append(skipped, path)
				continue
			}
			f.Path = path
			files = append(files, f)
		}
	}

	return files, skipped, nil
}
