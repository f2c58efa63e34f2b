package preference

import (
	"slices"

	"docscribe/internal/types"
)

// Tally is a total split into included and excluded.
type Tally struct {
	Total    int `json:"total"`
	Included int `json:"included"`
	Excluded int `json:"excluded"`
}

func tally(total, included int) Tally {
	return Tally{Total: total, Included: included, Excluded: total - included}
}

// Counts aggregates what the current preferences keep.
type Counts struct {
	Files     Tally `json:"files"`
	Functions Tally `json:"functions"`
	Classes   Tally `json:"classes"`
	Methods   Tally `json:"methods"`
	Overall   Tally `json:"overall"`
}

// CountItems computes Counts for prefs over files. File totals span every
// file; function, class and method totals span included files only. Methods
// of an excluded class are never counted as included.
func CountItems(prefs Preferences, files []types.FileRecord) Counts {
	included := IncludedFiles(prefs.DirectoryExclusion, files)

	var totalFn, totalCls, totalMth, inFn, inCls, inMth int
	for _, f := range included {
		totalFn += len(f.Functions)
		totalCls += len(f.Classes)
		totalMth += f.MethodCount()

		entry, _ := EntryFor(prefs.PerFileExclusion, f)
		for _, fn := range f.Functions {
			if !slices.Contains(entry.ExcludeFunctions, fn.Name) {
				inFn++
			}
		}
		for _, cls := range f.Classes {
			if slices.Contains(entry.ExcludeClasses, cls.Name) {
				continue
			}
			inCls++
			for _, m := range cls.Methods {
				if !slices.Contains(entry.ExcludeMethods, m.Name) {
					inMth++
				}
			}
		}
	}

	c := Counts{
		Files:     tally(len(files), len(included)),
		Functions: tally(totalFn, inFn),
		Classes:   tally(totalCls, inCls),
		Methods:   tally(totalMth, inMth),
	}
	c.Overall = tally(
		c.Files.Total+c.Functions.Total+c.Classes.Total+c.Methods.Total,
		c.Files.Included+c.Functions.Included+c.Classes.Included+c.Methods.Included,
	)
	return c
}
