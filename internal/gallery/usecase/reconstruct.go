package usecase

import (
	"sort"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/gallery/domain"
)

// URLBuilder turns a stored filename into a public asset URL.
type URLBuilder func(filename string) string

// Reconstruct rebuilds listing views from a flat set of stored objects.
//
// Objects with incomplete metadata are skipped and counted in Discarded.
// The first object (lowest id) of every group represents it. The attribute
// filter and allow-list run before limit and pagination, so TotalPages always
// describes the filtered, grouped collection.
func Reconstruct(objects []domain.StoredObject, q domain.Query, url URLBuilder) domain.ListingPage {
	ordered := make([]domain.StoredObject, len(objects))
	copy(ordered, objects)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var allowed map[string]struct{}
	if len(q.AllowedBodyTypes) > 0 {
		allowed = make(map[string]struct{}, len(q.AllowedBodyTypes))
		for _, bt := range q.AllowedBodyTypes {
			allowed[bt] = struct{}{}
		}
	}

	page := domain.ListingPage{}
	seen := make(map[string]struct{})
	views := make([]domain.ListingView, 0)
	for _, obj := range ordered {
		md := obj.Metadata
		if !md.Complete() {
			page.Discarded++
			continue
		}
		if !q.Filter.Matches(md.Attributes) {
			continue
		}
		if _, dup := seen[md.GroupID]; dup {
			continue
		}
		seen[md.GroupID] = struct{}{}
		if allowed != nil {
			if _, ok := allowed[md.Attributes.BodyType]; !ok {
				continue
			}
		}
		views = append(views, domain.ListingView{
			GroupID:    md.GroupID,
			URL:        url(obj.Filename),
			Attributes: md.Attributes,
		})
	}

	if q.Limit > 0 && len(views) > q.Limit {
		views = views[:q.Limit]
	}
	page.Total = len(views)

	if q.Paginated() {
		page.TotalPages = (len(views) + q.PageSize - 1) / q.PageSize
		start := (q.Page - 1) * q.PageSize
		if start > len(views) {
			start = len(views)
		}
		end := start + q.PageSize
		if end > len(views) {
			end = len(views)
		}
		views = views[start:end]
	}

	page.Listings = views
	return page
}

// groupObjects projects every object of one group, ordered by id.
func groupObjects(objects []domain.StoredObject, url URLBuilder) []domain.ObjectView {
	ordered := make([]domain.StoredObject, len(objects))
	copy(ordered, objects)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	out := make([]domain.ObjectView, 0, len(ordered))
	for _, obj := range ordered {
		out = append(out, domain.ObjectView{
			ObjectID:   obj.ID,
			Filename:   obj.Filename,
			URL:        url(obj.Filename),
			Attributes: obj.Metadata.Attributes,
		})
	}
	return out
}
