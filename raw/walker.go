package raw

import "context"

// Walkers produce a lazy, finite, non-restartable sequence of entries rooted
// at a directory by repeatedly listing discovered subdirectories. They are
// explicit state machines, not native recursion, so traversal survives being
// driven page by page from concurrent-friendly code without stack-depth
// hazards.
//
// Ordering across sibling directories is backend-defined; callers must not
// depend on it.

// topDownWalker yields each directory entry before anything beneath it.
type topDownWalker struct {
	acc    Accessor
	dirs   []string // stack of directories discovered but not yet listed
	active Pager    // pager of the directory currently being listed
}

// NewTopDownWalker walks the tree rooted at path, parents before children.
func NewTopDownWalker(acc Accessor, path string) Pager {
	return &topDownWalker{acc: acc, dirs: []string{toDirPath(path)}}
}

func (w *topDownWalker) NextPage(ctx context.Context) ([]Entry, error) {
	for {
		if w.active != nil {
			page, err := w.active.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			if page == nil {
				w.active = nil
				continue
			}
			// Subdirectories are deferred to the stack; they are yielded
			// when popped, right before their own contents.
			out := make([]Entry, 0, len(page))
			for _, e := range page {
				if e.Meta.Mode().IsDir() {
					w.dirs = append(w.dirs, e.Path)
					continue
				}
				out = append(out, e)
			}
			if len(out) == 0 {
				continue
			}
			return out, nil
		}

		if len(w.dirs) == 0 {
			return nil, nil
		}
		dir := w.dirs[len(w.dirs)-1]
		w.dirs = w.dirs[:len(w.dirs)-1]

		_, pager, err := w.acc.List(ctx, dir, ListArgs{})
		if err != nil {
			return nil, err
		}
		w.active = pager
		return []Entry{NewEntry(dir, NewObjectMetadata(ModeDir))}, nil
	}
}

// bottomUpWalker yields a directory's descendants before the directory
// itself, which is the order recursive delete needs.
type bottomUpWalker struct {
	acc   Accessor
	stack []*walkFrame
}

type walkFrame struct {
	path  string
	pager Pager
}

// NewBottomUpWalker walks the tree rooted at path, children before parents.
func NewBottomUpWalker(acc Accessor, path string) Pager {
	return &bottomUpWalker{
		acc:   acc,
		stack: []*walkFrame{{path: toDirPath(path)}},
	}
}

func (w *bottomUpWalker) NextPage(ctx context.Context) ([]Entry, error) {
	for {
		if len(w.stack) == 0 {
			return nil, nil
		}
		frame := w.stack[len(w.stack)-1]

		if frame.pager == nil {
			_, pager, err := w.acc.List(ctx, frame.path, ListArgs{})
			if err != nil {
				return nil, err
			}
			frame.pager = pager
		}

		page, err := frame.pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		if page == nil {
			// Fully drained, including every subdirectory pushed above this
			// frame; the directory itself is yielded last.
			w.stack = w.stack[:len(w.stack)-1]
			return []Entry{NewEntry(frame.path, NewObjectMetadata(ModeDir))}, nil
		}

		out := make([]Entry, 0, len(page))
		for _, e := range page {
			if e.Meta.Mode().IsDir() {
				w.stack = append(w.stack, &walkFrame{path: e.Path})
				continue
			}
			out = append(out, e)
		}
		if len(out) == 0 {
			continue
		}
		return out, nil
	}
}

func toDirPath(path string) string {
	if IsDirPath(path) {
		if path == "" {
			return "/"
		}
		return path
	}
	return path + "/"
}
