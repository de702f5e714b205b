package resource

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"course-portal/internal/course"
	"course-portal/internal/models"

	"github.com/google/uuid"
)

// GeneralNode is the panel id of resources without a lecture.
const GeneralNode = "general"

// PageQuery is the addressable state of a course page.
type PageQuery struct {
	Q       string
	Type    string
	Lecture string
}

func ParsePageQuery(v url.Values) PageQuery {
	return PageQuery{
		Q:       v.Get("q"),
		Type:    v.Get("type"),
		Lecture: v.Get("lecture"),
	}
}

// Encode drops empty fields so an untouched page has no query string.
func (p PageQuery) Encode() url.Values {
	v := url.Values{}
	if p.Q != "" {
		v.Set("q", p.Q)
	}
	if p.Type != "" {
		v.Set("type", p.Type)
	}
	if p.Lecture != "" {
		v.Set("lecture", p.Lecture)
	}
	return v
}

type Node struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Kind      models.LectureKind `json:"kind,omitempty"`
	Resources []models.Resource  `json:"resources"`
}

type Page struct {
	Types      []string `json:"types"`
	Formatives []Node   `json:"formatives"`
	Lectures   []Node   `json:"lectures"`
	Open       string   `json:"open,omitempty"`
	Query      string   `json:"query"`
}

// Filter keeps resources whose title or description contains q
// (case-insensitive) and whose type equals typ when typ is set.
func Filter(list []models.Resource, q, typ string) []models.Resource {
	needle := strings.ToLower(strings.TrimSpace(q))
	var out []models.Resource
	for _, r := range list {
		if typ != "" && r.Type != typ {
			continue
		}
		if needle != "" {
			hay := r.Title
			if r.Description != nil {
				hay += " " + *r.Description
			}
			if !strings.Contains(strings.ToLower(hay), needle) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// Types lists the distinct resource types, sorted.
func Types(list []models.Resource) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range list {
		if !seen[r.Type] {
			seen[r.Type] = true
			out = append(out, r.Type)
		}
	}
	sort.Strings(out)
	return out
}

// BuildPage groups resources under their lecture. The general bucket
// leads the lecture list when it has content.
func BuildPage(lectures []models.Lecture, resources []models.Resource, pq PageQuery) Page {
	g := course.Split(lectures)
	filtered := Filter(resources, pq.Q, pq.Type)

	byLecture := map[uuid.UUID][]models.Resource{}
	var general []models.Resource
	for _, r := range filtered {
		if r.LectureID == nil {
			general = append(general, r)
			continue
		}
		byLecture[*r.LectureID] = append(byLecture[*r.LectureID], r)
	}

	page := Page{Types: Types(resources)}
	for _, f := range g.Formatives {
		page.Formatives = append(page.Formatives, Node{
			ID: f.ID.String(), Title: course.FormativeTitle(f.Number()), Kind: f.Kind, Resources: byLecture[f.ID],
		})
	}
	if len(general) > 0 {
		page.Lectures = append(page.Lectures, Node{ID: GeneralNode, Title: "General content", Resources: general})
	}
	for _, l := range g.Lectures {
		page.Lectures = append(page.Lectures, Node{
			ID: l.ID.String(), Title: l.Title, Kind: l.Kind, Resources: byLecture[l.ID],
		})
	}

	page.Open = pq.Lecture
	if page.Open == "" {
		page.Open = defaultOpen(page)
	}
	page.Query = pq.Encode().Encode()
	return page
}

// defaultOpen picks the first node with resources, else the first
// lecture, else the first formative.
func defaultOpen(p Page) string {
	nodes := append(append([]Node{}, p.Formatives...), p.Lectures...)
	for _, n := range nodes {
		if len(n.Resources) > 0 {
			return n.ID
		}
	}
	if len(p.Lectures) > 0 {
		return p.Lectures[0].ID
	}
	if len(p.Formatives) > 0 {
		return p.Formatives[0].ID
	}
	return ""
}

func (s *Service) CoursePage(ctx context.Context, courseID uuid.UUID, pq PageQuery) (Page, error) {
	lectures, err := s.lectures.ListLectures(ctx, courseID)
	if err != nil {
		return Page{}, err
	}
	resources, err := s.store.ListByCourse(ctx, courseID)
	if err != nil {
		return Page{}, err
	}
	return BuildPage(lectures, resources, pq), nil
}
