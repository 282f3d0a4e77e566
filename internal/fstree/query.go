package fstree

import (
	"cmp"
	"math"
	"slices"
)

// DirSize pairs a directory path with its aggregate size.
type DirSize struct {
	// Path is the slash-joined directory path.
	Path string `json:"path" yaml:"path"`
	// Size is the aggregate size in bytes.
	Size int64 `json:"size" yaml:"size"`
}

// SumBelowThreshold sums the sizes of all directories strictly smaller than
// threshold. Nested directories are counted independently, so the sum can
// exceed the root's size; it saturates at math.MaxInt64.
func SumBelowThreshold(sizes Sizes, threshold int64) int64 {
	var total int64

	for _, size := range sizes {
		if size >= threshold {
			continue
		}

		if size > math.MaxInt64-total {
			return math.MaxInt64
		}

		total += size
	}

	return total
}

// SmallestAtLeast returns the smallest directory size that is at least target.
func SmallestAtLeast(sizes Sizes, target int64) (int64, error) {
	dir, err := SmallestDirAtLeast(sizes, target)
	if err != nil {
		return 0, err
	}

	return dir.Size, nil
}

// SmallestDirAtLeast returns the smallest directory of at least target bytes.
// Directories of equal size are resolved by the lexicographically smallest path.
func SmallestDirAtLeast(sizes Sizes, target int64) (DirSize, error) {
	var (
		best  DirSize
		found bool
	)

	for p, size := range sizes {
		if size < target {
			continue
		}

		if !found || size < best.Size || (size == best.Size && p < best.Path) {
			best = DirSize{Path: p, Size: size}
			found = true
		}
	}

	if !found {
		return DirSize{}, &NoCandidateError{Target: target}
	}

	return best, nil
}

// DeletionTarget returns how many bytes must be freed so that at least
// required bytes are available on a disk of the given capacity.
func DeletionTarget(used, capacity, required int64) int64 {
	return used - (capacity - required)
}

// Deletion describes the outcome of PlanDeletion.
type Deletion struct {
	// Used is the aggregate size of the root.
	Used int64 `json:"used" yaml:"used"`
	// Target is the number of bytes that must be freed.
	Target int64 `json:"target" yaml:"target"`
	// Needed is false when enough space is already available.
	Needed bool `json:"needed" yaml:"needed"`
	// Dir is the smallest directory whose removal frees Target bytes.
	Dir DirSize `json:"dir" yaml:"dir"`
}

// PlanDeletion picks the smallest directory whose removal leaves at least
// required bytes free on a disk of the given capacity.
//
// The root always frees the entire used space. If even the root is not large
// enough (the requirement exceeds the capacity) a NoCandidateError is
// returned instead of searching.
func PlanDeletion(sizes Sizes, capacity, required int64) (Deletion, error) {
	used, ok := sizes.Root()
	if !ok {
		return Deletion{}, &NoCandidateError{Target: required}
	}

	plan := Deletion{Used: used, Target: DeletionTarget(used, capacity, required)}
	if plan.Target <= 0 {
		return plan, nil
	}

	if used < plan.Target {
		return plan, &NoCandidateError{Target: plan.Target}
	}

	dir, err := SmallestDirAtLeast(sizes, plan.Target)
	if err != nil {
		return plan, err
	}

	plan.Needed = true
	plan.Dir = dir

	return plan, nil
}

// Largest returns up to n directories ordered by descending size, ties by path.
func Largest(sizes Sizes, n int) []DirSize {
	dirs := make([]DirSize, 0, len(sizes))
	for p, size := range sizes {
		dirs = append(dirs, DirSize{Path: p, Size: size})
	}

	slices.SortFunc(dirs, func(a, b DirSize) int {
		if c := cmp.Compare(b.Size, a.Size); c != 0 {
			return c
		}

		return cmp.Compare(a.Path, b.Path)
	})

	if n >= 0 && len(dirs) > n {
		dirs = dirs[:n]
	}

	return dirs
}
