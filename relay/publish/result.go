package publish

// Result aggregates the outcome of one publish attempt. Post and story
// outcomes are reported independently; there is no combined status.
type Result struct {
	// PostIDs lists created wall posts in group order. Failed groups are absent.
	PostIDs        []int64
	PostsAttempted int

	StoryAttempted bool
	StoryOK        bool
}

// PostsFailed returns the number of groups where the wall post was not created.
func (r Result) PostsFailed() int {
	if n := r.PostsAttempted - len(r.PostIDs); n > 0 {
		return n
	}
	return 0
}
