// Package phases holds the nine concrete pipeline phases. Each one glues a
// processor package to the runner: it declares artifact keys, resolves
// paths, and maps failures onto the error taxonomy. The domain logic lives
// in the processor packages, not here.
package phases
