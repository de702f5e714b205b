// Package favorites keeps a bounded, newest-first list of saved
// resources on the local machine. Writes replace the whole list.
package favorites

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

const DefaultCap = 300

// Favorite copies a resource's display fields plus what is needed to
// link back to its lecture.
type Favorite struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Type        string  `json:"type"`
	Description *string `json:"description"`
	StoragePath *string `json:"storage_path"`
	ExternalURL *string `json:"external_url"`

	CourseID     *string `json:"course_id"`
	CourseCode   *string `json:"course_code"`
	CourseName   *string `json:"course_name"`
	LectureKey   *string `json:"lecture_key"`
	LectureTitle *string `json:"lecture_title"`

	SavedAt time.Time `json:"saved_at"`
}

func (f Favorite) valid() bool {
	return f.ID != "" && f.Title != ""
}

// Store persists the whole list at once.
type Store interface {
	Load() ([]Favorite, error)
	Save(items []Favorite) error
}

type List struct {
	mu    sync.Mutex
	store Store
	cap   int
	now   func() time.Time

	subMu   sync.Mutex
	subs    map[int]func([]Favorite)
	nextSub int
}

func New(store Store, capacity int) *List {
	if capacity < 1 {
		capacity = DefaultCap
	}
	return &List{
		store: store,
		cap:   capacity,
		now:   time.Now,
		subs:  map[int]func([]Favorite){},
	}
}

// load never fails: unreadable content reads as an empty list.
func (l *List) load() []Favorite {
	items, err := l.store.Load()
	if err != nil {
		glog.Warningf("favorites unreadable, starting empty: %v", err)
		return nil
	}
	out := items[:0]
	for _, f := range items {
		if f.valid() {
			out = append(out, f)
		}
	}
	return out
}

func (l *List) write(items []Favorite) error {
	if len(items) > l.cap {
		items = items[:l.cap]
	}
	if err := l.store.Save(items); err != nil {
		return errors.Wrap(err, "save favorites")
	}
	l.notify(items)
	return nil
}

func (l *List) notify(items []Favorite) {
	l.subMu.Lock()
	fns := make([]func([]Favorite), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.subMu.Unlock()

	for _, fn := range fns {
		snapshot := make([]Favorite, len(items))
		copy(snapshot, items)
		fn(snapshot)
	}
}

// Subscribe registers fn to receive the list after every write.
func (l *List) Subscribe(fn func([]Favorite)) (unsubscribe func()) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	return func() {
		l.subMu.Lock()
		defer l.subMu.Unlock()
		delete(l.subs, id)
	}
}

func (l *List) Items() []Favorite {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

func (l *List) Contains(id string) bool {
	for _, f := range l.Items() {
		if f.ID == id {
			return true
		}
	}
	return false
}

func indexOf(items []Favorite, id string) int {
	for i, f := range items {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// Toggle removes f if it is saved and saves it at the front otherwise.
// It reports whether f is saved afterwards. Toggling twice restores the
// list only below capacity: a save on a full list evicts the oldest entry,
// and the matching unsave does not bring it back.
func (l *List) Toggle(f Favorite) (bool, error) {
	if !f.valid() {
		return false, errors.New("favorite needs an id and a title")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	items := l.load()
	if i := indexOf(items, f.ID); i >= 0 {
		return false, l.write(append(items[:i:i], items[i+1:]...))
	}
	f.SavedAt = l.now().UTC()
	return true, l.write(append([]Favorite{f}, items...))
}

func (l *List) Remove(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := l.load()
	i := indexOf(items, id)
	if i < 0 {
		return l.write(items)
	}
	return l.write(append(items[:i:i], items[i+1:]...))
}

// MetaPatch updates display fields; nil fields are left alone.
type MetaPatch struct {
	Title       *string
	Type        *string
	Description *string
	StoragePath *string
	ExternalURL *string
}

// UpdateMeta refreshes a saved entry in place. Unknown ids are ignored.
func (l *List) UpdateMeta(id string, p MetaPatch) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := l.load()
	i := indexOf(items, id)
	if i < 0 {
		return nil
	}
	f := &items[i]
	if p.Title != nil {
		f.Title = *p.Title
	}
	if p.Type != nil {
		f.Type = *p.Type
	}
	if p.Description != nil {
		f.Description = p.Description
	}
	if p.StoragePath != nil {
		f.StoragePath = p.StoragePath
	}
	if p.ExternalURL != nil {
		f.ExternalURL = p.ExternalURL
	}
	return l.write(items)
}

func (l *List) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.write([]Favorite{})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Search keeps entries whose text fields contain q, case-insensitively.
func Search(items []Favorite, q string) []Favorite {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return items
	}
	var out []Favorite
	for _, f := range items {
		hay := strings.ToLower(strings.Join([]string{
			f.Title, deref(f.Description), f.Type,
			deref(f.CourseCode), deref(f.CourseName), deref(f.LectureTitle),
		}, " "))
		if strings.Contains(hay, q) {
			out = append(out, f)
		}
	}
	return out
}

type Group struct {
	CourseID string     `json:"course_id"`
	Label    string     `json:"label"`
	Items    []Favorite `json:"items"`
}

func courseLabel(f Favorite) string {
	code, name := deref(f.CourseCode), deref(f.CourseName)
	switch {
	case code != "" && name != "":
		return code + " - " + name
	case code != "":
		return code
	}
	return "Content"
}

// GroupByCourse buckets entries by course in order of first appearance.
// Entries without a course share one bucket with an empty CourseID.
func GroupByCourse(items []Favorite) []Group {
	var groups []Group
	pos := map[string]int{}
	for _, f := range items {
		key := deref(f.CourseID)
		i, ok := pos[key]
		if !ok {
			i = len(groups)
			pos[key] = i
			groups = append(groups, Group{CourseID: key, Label: courseLabel(f)})
		}
		groups[i].Items = append(groups[i].Items, f)
	}
	for i := range groups {
		list := groups[i].Items
		sort.SliceStable(list, func(a, b int) bool { return list[a].SavedAt.After(list[b].SavedAt) })
	}
	return groups
}
