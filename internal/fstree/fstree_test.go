package fstree_test

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/shelldu/internal/fstree"
)

// sampleEvents is the canonical example session.
func sampleEvents() []fstree.Event {
	return []fstree.Event{
		fstree.Cd("/"),
		fstree.Dir("a"),
		fstree.File("b.txt", 14848514),
		fstree.File("c.dat", 8504156),
		fstree.Dir("d"),
		fstree.Cd("a"),
		fstree.Dir("e"),
		fstree.File("f", 29116),
		fstree.File("g", 2557),
		fstree.File("h.lst", 62596),
		fstree.Cd("e"),
		fstree.File("i", 584),
		fstree.Cd(".."),
		fstree.Cd(".."),
		fstree.Cd("d"),
		fstree.File("j", 4060174),
		fstree.File("d.log", 8033020),
		fstree.File("d.ext", 5626152),
		fstree.File("k", 7214296),
	}
}

func TestComputeSizes_Sample(t *testing.T) {
	tree, err := fstree.BuildTree(sampleEvents())
	require.NoError(t, err)

	got := fstree.ComputeSizes(tree)
	want := fstree.Sizes{
		"/":    48381165,
		"/a":   94853,
		"/a/e": 584,
		"/d":   24933642,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ComputeSizes() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 4, tree.DirCount())
	assert.Equal(t, 10, tree.FileCount())
}

func TestComputeSizes_SmallScenario(t *testing.T) {
	tree, err := fstree.BuildTree([]fstree.Event{
		fstree.Cd("/"),
		fstree.Dir("a"),
		fstree.File("b.txt", 14848514),
		fstree.Cd("a"),
		fstree.File("f", 29116),
	})
	require.NoError(t, err)

	sizes := fstree.ComputeSizes(tree)
	assert.Equal(t, int64(14848514+29116), sizes["/"])
	assert.Equal(t, int64(29116), sizes["/a"])
	assert.Equal(t, int64(29116), fstree.SumBelowThreshold(sizes, 100000))
}

func TestComputeSizes_RootEqualsSumOfFiles(t *testing.T) {
	tree, err := fstree.BuildTree(sampleEvents())
	require.NoError(t, err)

	var total int64

	for _, ev := range sampleEvents() {
		if ev.Kind == fstree.ListFile {
			total += ev.Size
		}
	}

	root, ok := fstree.ComputeSizes(tree).Root()
	require.True(t, ok)
	assert.Equal(t, total, root)
}

func TestComputeSizes_Idempotent(t *testing.T) {
	tree, err := fstree.BuildTree(sampleEvents())
	require.NoError(t, err)

	first := fstree.ComputeSizes(tree)
	second := fstree.ComputeSizes(tree)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second ComputeSizes() differs (-first +second):\n%s", diff)
	}
}

func TestComputeSizes_InvalidatedByChange(t *testing.T) {
	b := fstree.NewBuilder()
	require.NoError(t, b.Apply(fstree.Dir("a")))
	require.NoError(t, b.Apply(fstree.Cd("a")))
	require.NoError(t, b.Apply(fstree.File("x", 10)))

	tree := b.Tree()
	assert.Equal(t, int64(10), fstree.ComputeSizes(tree)["/"])

	_, ok := tree.Size(fstree.Root)
	assert.True(t, ok)

	require.NoError(t, b.Apply(fstree.File("y", 5)))

	_, ok = tree.Size(fstree.Root)
	assert.False(t, ok, "structural change must invalidate cached sizes")

	sizes := fstree.ComputeSizes(tree)
	assert.Equal(t, int64(15), sizes["/"])
	assert.Equal(t, int64(15), sizes["/a"])

	// Overwriting a file size also invalidates.
	require.NoError(t, b.Apply(fstree.File("y", 1)))
	assert.Equal(t, int64(11), fstree.ComputeSizes(tree)["/a"])
}

func TestComputeSizes_DeepNesting(t *testing.T) {
	const depth = 1000

	events := []fstree.Event{fstree.Cd("/")}
	for i := range depth {
		name := "d" + strconv.Itoa(i)
		events = append(events, fstree.Dir(name), fstree.Cd(name))
	}

	events = append(events, fstree.File("leaf", 7))

	tree, err := fstree.BuildTree(events)
	require.NoError(t, err)

	sizes := fstree.ComputeSizes(tree)
	require.Len(t, sizes, depth+1)

	for p, size := range sizes {
		assert.Equal(t, int64(7), size, p)
	}

	assert.Equal(t, int64(7)*(depth+1), fstree.SumBelowThreshold(sizes, 100))
}

func TestBuilder_RelistDirectoryIsIdempotent(t *testing.T) {
	b := fstree.NewBuilder()
	require.NoError(t, b.Apply(fstree.Dir("a")))
	require.NoError(t, b.Apply(fstree.Cd("a")))
	require.NoError(t, b.Apply(fstree.File("f", 3)))
	require.NoError(t, b.Apply(fstree.Cd("/")))
	require.NoError(t, b.Apply(fstree.Dir("a")))

	tree := b.Tree()
	assert.Len(t, tree.Children(fstree.Root), 1)

	a, ok := tree.Child(fstree.Root, "a")
	require.True(t, ok)
	assert.Len(t, tree.Children(a), 1, "relisting must keep existing contents")
}

func TestBuilder_FileOverwrite(t *testing.T) {
	tree, err := fstree.BuildTree([]fstree.Event{
		fstree.File("f", 3),
		fstree.File("f", 9),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, tree.FileCount())
	assert.Equal(t, int64(9), fstree.ComputeSizes(tree)["/"])
}

func TestBuilder_Navigation(t *testing.T) {
	b := fstree.NewBuilder()
	require.NoError(t, b.Apply(fstree.Dir("a")))
	require.NoError(t, b.Apply(fstree.Cd("a")))
	require.NoError(t, b.Apply(fstree.Dir("b")))
	require.NoError(t, b.Apply(fstree.Cd("b")))

	assert.Equal(t, "/a/b", b.Tree().Path(b.Cwd()))

	require.NoError(t, b.Apply(fstree.Cd("..")))
	assert.Equal(t, "/a", b.Tree().Path(b.Cwd()))

	require.NoError(t, b.Apply(fstree.Cd("/")))
	assert.Equal(t, fstree.Root, b.Cwd())
}

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name   string
		events []fstree.Event
		want   error
	}{
		{
			name:   "cd above root",
			events: []fstree.Event{fstree.Cd("/"), fstree.Cd("..")},
			want:   fstree.ErrNavigation,
		},
		{
			name:   "cd into unlisted directory",
			events: []fstree.Event{fstree.Cd("nope")},
			want:   fstree.ErrUnknownDirectory,
		},
		{
			name:   "cd into a file",
			events: []fstree.Event{fstree.File("f", 1), fstree.Cd("f")},
			want:   fstree.ErrUnknownDirectory,
		},
		{
			name:   "directory listed over file",
			events: []fstree.Event{fstree.File("x", 1), fstree.Dir("x")},
			want:   fstree.ErrEntryConflict,
		},
		{
			name:   "file listed over directory",
			events: []fstree.Event{fstree.Dir("x"), fstree.File("x", 1)},
			want:   fstree.ErrEntryConflict,
		},
		{
			name:   "negative size",
			events: []fstree.Event{fstree.File("x", -1)},
			want:   fstree.ErrParse,
		},
		{
			name:   "name with slash",
			events: []fstree.Event{fstree.Dir("a/b")},
			want:   fstree.ErrParse,
		},
		{
			name:   "dot-dot entry",
			events: []fstree.Event{fstree.Dir("..")},
			want:   fstree.ErrParse,
		},
		{
			name:   "empty cd target",
			events: []fstree.Event{fstree.Cd("")},
			want:   fstree.ErrParse,
		},
		{
			name:   "total size overflow",
			events: []fstree.Event{fstree.File("a", 5e18), fstree.File("b", 5e18)},
			want:   fstree.ErrSizeOverflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fstree.BuildTree(tt.events)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBuilder_ErrorsCarryLine(t *testing.T) {
	ev := fstree.Cd("..")
	ev.Line = 42

	_, err := fstree.BuildTree([]fstree.Event{ev})

	var navErr *fstree.NavigationError
	require.ErrorAs(t, err, &navErr)
	assert.Equal(t, 42, navErr.Line)

	conflict := fstree.Dir("x")
	conflict.Line = 3

	_, err = fstree.BuildTree([]fstree.Event{fstree.File("x", 1), conflict})

	var conflictErr *fstree.EntryConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, 3, conflictErr.Line)
	assert.Equal(t, fstree.KindFile, conflictErr.Existing)
}

func TestQueries_Sample(t *testing.T) {
	tree, err := fstree.BuildTree(sampleEvents())
	require.NoError(t, err)

	sizes := fstree.ComputeSizes(tree)

	assert.Equal(t, int64(95437), fstree.SumBelowThreshold(sizes, 100000))

	root, _ := sizes.Root()
	target := fstree.DeletionTarget(root, 70000000, 30000000)
	assert.Equal(t, int64(8381165), target)

	got, err := fstree.SmallestAtLeast(sizes, target)
	require.NoError(t, err)
	assert.Equal(t, int64(24933642), got)

	plan, err := fstree.PlanDeletion(sizes, 70000000, 30000000)
	require.NoError(t, err)
	assert.True(t, plan.Needed)
	assert.Equal(t, fstree.DirSize{Path: "/d", Size: 24933642}, plan.Dir)
}

func TestSumBelowThreshold_NoneQualify(t *testing.T) {
	sizes := fstree.Sizes{"/": 500, "/a": 200}
	assert.Zero(t, fstree.SumBelowThreshold(sizes, 100))
	assert.Equal(t, int64(200), fstree.SumBelowThreshold(sizes, 500))
}

func TestSmallestDirAtLeast(t *testing.T) {
	sizes := fstree.Sizes{"/": 300, "/b": 100, "/a": 100, "/c": 50}

	dir, err := fstree.SmallestDirAtLeast(sizes, 60)
	require.NoError(t, err)
	assert.Equal(t, fstree.DirSize{Path: "/a", Size: 100}, dir, "ties resolve by path")

	dir, err = fstree.SmallestDirAtLeast(sizes, 300)
	require.NoError(t, err)
	assert.Equal(t, "/", dir.Path)

	_, err = fstree.SmallestAtLeast(sizes, 301)
	require.ErrorIs(t, err, fstree.ErrNoCandidate)

	var noCandidate *fstree.NoCandidateError
	require.True(t, errors.As(err, &noCandidate))
	assert.Equal(t, int64(301), noCandidate.Target)
}

func TestPlanDeletion(t *testing.T) {
	sizes := fstree.Sizes{"/": 100, "/a": 60, "/b": 30}

	tests := []struct {
		name     string
		capacity int64
		required int64
		want     fstree.Deletion
		wantErr  error
	}{
		{
			name:     "enough space already",
			capacity: 1000,
			required: 100,
			want:     fstree.Deletion{Used: 100, Target: -800},
		},
		{
			name:     "small directory suffices",
			capacity: 150,
			required: 70,
			want:     fstree.Deletion{Used: 100, Target: 20, Needed: true, Dir: fstree.DirSize{Path: "/b", Size: 30}},
		},
		{
			name:     "only root suffices",
			capacity: 100,
			required: 90,
			want:     fstree.Deletion{Used: 100, Target: 90, Needed: true, Dir: fstree.DirSize{Path: "/", Size: 100}},
		},
		{
			name:     "requirement exceeds capacity",
			capacity: 100,
			required: 150,
			wantErr:  fstree.ErrNoCandidate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fstree.PlanDeletion(sizes, tt.capacity, tt.required)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := fstree.PlanDeletion(fstree.Sizes{}, 10, 5)
	require.ErrorIs(t, err, fstree.ErrNoCandidate)
}

func TestLargest(t *testing.T) {
	sizes := fstree.Sizes{"/": 300, "/b": 100, "/a": 100, "/c": 50}

	assert.Equal(t, []fstree.DirSize{
		{Path: "/", Size: 300},
		{Path: "/a", Size: 100},
		{Path: "/b", Size: 100},
	}, fstree.Largest(sizes, 3))

	assert.Len(t, fstree.Largest(sizes, 10), 4)
}

func TestTree_ChildrenSortedAndPaths(t *testing.T) {
	tree, err := fstree.BuildTree(sampleEvents())
	require.NoError(t, err)

	var names []string
	for _, id := range tree.Children(fstree.Root) {
		names = append(names, tree.Name(id))
	}

	assert.Equal(t, []string{"a", "b.txt", "c.dat", "d"}, names)

	a, _ := tree.Child(fstree.Root, "a")
	e, ok := tree.Child(a, "e")
	require.True(t, ok)
	assert.Equal(t, "/a/e", tree.Path(e))
	assert.Equal(t, fstree.RootName, tree.Path(fstree.Root))
}

func TestTree_RejectsInvalidNames(t *testing.T) {
	for _, name := range []string{"", ".", "..", "a/b", "/"} {
		t.Run(strconv.Quote(name), func(t *testing.T) {
			tree := fstree.NewTree()

			_, err := tree.AddDir(fstree.Root, name)
			require.ErrorIs(t, err, fstree.ErrInvalidName)

			_, err = tree.PutFile(fstree.Root, name, 5)
			require.ErrorIs(t, err, fstree.ErrInvalidName)

			assert.Equal(t, 1, tree.Len(), "rejected names must not add nodes")
		})
	}
}

func TestComputeSizes_DotDotCannotShadowRoot(t *testing.T) {
	tree := fstree.NewTree()

	_, err := tree.AddDir(fstree.Root, "..")
	require.Error(t, err)

	_, err = tree.PutFile(fstree.Root, "y", 100)
	require.NoError(t, err)

	assert.Equal(t, fstree.Sizes{"/": 100}, fstree.ComputeSizes(tree))
}

func TestTree_SizeOverflow(t *testing.T) {
	tests := []struct {
		name  string
		sizes []int64
		// wantErr is the index of the first rejected size, -1 if all fit.
		wantErr int
		root    int64
	}{
		{name: "exactly max", sizes: []int64{math.MaxInt64 - 1, 1}, wantErr: -1, root: math.MaxInt64},
		{name: "one past max", sizes: []int64{math.MaxInt64, 1}, wantErr: 1, root: math.MaxInt64},
		{name: "two halves", sizes: []int64{5e18, 5e18}, wantErr: 1, root: 5e18},
		{name: "single max", sizes: []int64{math.MaxInt64}, wantErr: -1, root: math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := fstree.NewTree()
			dir, err := tree.AddDir(fstree.Root, "d")
			require.NoError(t, err)

			for i, size := range tt.sizes {
				_, err := tree.PutFile(dir, "f"+strconv.Itoa(i), size)
				if i == tt.wantErr {
					require.ErrorIs(t, err, fstree.ErrSizeOverflow)

					break
				}

				require.NoError(t, err)
			}

			sizes := fstree.ComputeSizes(tree)
			for p, size := range sizes {
				assert.GreaterOrEqual(t, size, int64(0), p)
			}

			assert.Equal(t, tt.root, sizes["/"])
			assert.Equal(t, tt.root, sizes["/d"])
		})
	}
}

func TestTree_OverwriteRespectsTotal(t *testing.T) {
	tree := fstree.NewTree()

	_, err := tree.PutFile(fstree.Root, "a", math.MaxInt64-10)
	require.NoError(t, err)
	_, err = tree.PutFile(fstree.Root, "b", 10)
	require.NoError(t, err)

	_, err = tree.PutFile(fstree.Root, "b", 11)
	require.ErrorIs(t, err, fstree.ErrSizeOverflow)

	_, err = tree.PutFile(fstree.Root, "a", 0)
	require.NoError(t, err)
	_, err = tree.PutFile(fstree.Root, "b", math.MaxInt64)
	require.NoError(t, err)

	root, _ := fstree.ComputeSizes(tree).Root()
	assert.Equal(t, int64(math.MaxInt64), root)
}

func TestBuilder_OverflowCarriesLine(t *testing.T) {
	second := fstree.File("b", 5e18)
	second.Line = 4

	_, err := fstree.BuildTree([]fstree.Event{fstree.File("a", 5e18), second})
	require.ErrorIs(t, err, fstree.ErrParse)
	require.ErrorIs(t, err, fstree.ErrSizeOverflow)

	var parseErr *fstree.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 4, parseErr.Line)
}

func TestSumBelowThreshold_Saturates(t *testing.T) {
	sizes := fstree.Sizes{"/": math.MaxInt64 - 1, "/a": math.MaxInt64 - 1, "/a/b": math.MaxInt64 - 1}

	assert.Equal(t, int64(math.MaxInt64), fstree.SumBelowThreshold(sizes, math.MaxInt64))
}
