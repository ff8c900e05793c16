package frontier

// Entry is one queued URL and the depth it was discovered at.
type Entry struct {
	URL   string
	Depth int
}

// Queue is a FIFO frontier with visited and queued sets. It is owned by a
// single crawl run and is not safe for concurrent use.
type Queue struct {
	entries []Entry
	queued  map[string]struct{}
	visited map[string]struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{
		queued:  make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
}

// Push appends url unless it was already queued or visited.
func (q *Queue) Push(url string, depth int) bool {
	if q.Seen(url) {
		return false
	}
	q.queued[url] = struct{}{}
	q.entries = append(q.entries, Entry{URL: url, Depth: depth})
	return true
}

// Pop removes and returns the front entry.
func (q *Queue) Pop() (Entry, bool) {
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	e := q.entries[0]
	q.entries[0] = Entry{}
	q.entries = q.entries[1:]
	return e, true
}

// MarkVisited records url as visited. It returns false when the url had
// already been visited.
func (q *Queue) MarkVisited(url string) bool {
	if _, ok := q.visited[url]; ok {
		return false
	}
	q.visited[url] = struct{}{}
	return true
}

// Visited reports whether url has been dequeued for a visit.
func (q *Queue) Visited(url string) bool {
	_, ok := q.visited[url]
	return ok
}

// Seen reports whether url is visited or waiting in the queue.
func (q *Queue) Seen(url string) bool {
	if _, ok := q.visited[url]; ok {
		return true
	}
	_, ok := q.queued[url]
	return ok
}

// Len is the number of entries waiting.
func (q *Queue) Len() int { return len(q.entries) }

// VisitedCount is the number of distinct URLs marked visited.
func (q *Queue) VisitedCount() int { return len(q.visited) }
