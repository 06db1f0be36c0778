// Package fs is the filesystem seam under the manifest store. The
// store writes through a [FileSystem] so tests can fail individual
// syscalls and prove that an interrupted save never repoints CURRENT
// at a half-written manifest.
//
// [LocalFS] is the production implementation; [Default] is its shared
// instance. [FaultyFS] wraps another FileSystem and injects write,
// sync or close failures per file:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("CURRENT", fs.Fault{FailAfterBytes: -1, FailOnSync: true})
//	store := manifest.NewStore(ffs, dir)
//
// Operations carry no context.Context. Local metadata syscalls are not
// interruptible at this level; the slow transports (archive backends)
// take contexts themselves.
package fs
