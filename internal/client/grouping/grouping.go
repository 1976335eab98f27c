// Package grouping aggregates active stories per author for rendering the
// entry bar. It is pure presentation math: deterministic, side-effect free,
// re-run on every snapshot.
package grouping

import (
	"sort"

	"github.com/syqdur/wedpxres-sub001/internal/models"
)

// StoryGroup is the per-author aggregation of active stories. Stories are
// ordered ascending by createdAt, which is the playback order.
type StoryGroup struct {
	UserName    string
	Stories     []*models.Story
	HasUnviewed bool
}

// Latest returns the most recently created story in the group.
func (g *StoryGroup) Latest() *models.Story {
	return g.Stories[len(g.Stories)-1]
}

// Group partitions active stories by author. The viewer's own group (any
// story authored by viewerID's device) sorts first; the rest sort by their
// latest story's createdAt descending. Ordering is stable under unchanged
// input: ties break on the author name.
func Group(active []*models.Story, viewerID string) []StoryGroup {
	index := make(map[string]int)
	groups := make([]StoryGroup, 0, len(active))

	for _, s := range active {
		i, ok := index[s.UserName]
		if !ok {
			i = len(groups)
			index[s.UserName] = i
			groups = append(groups, StoryGroup{UserName: s.UserName})
		}
		groups[i].Stories = append(groups[i].Stories, s)
	}

	for i := range groups {
		g := &groups[i]
		sort.SliceStable(g.Stories, func(a, b int) bool {
			return g.Stories[a].CreatedAt.Before(g.Stories[b].CreatedAt)
		})
		for _, s := range g.Stories {
			if !s.ViewedBy(viewerID) {
				g.HasUnviewed = true
				break
			}
		}
	}

	isOwn := func(g *StoryGroup) bool {
		for _, s := range g.Stories {
			if s.DeviceID == viewerID {
				return true
			}
		}
		return false
	}

	sort.SliceStable(groups, func(a, b int) bool {
		ga, gb := &groups[a], &groups[b]
		oa, ob := isOwn(ga), isOwn(gb)
		if oa != ob {
			return oa
		}
		la, lb := ga.Latest().CreatedAt, gb.Latest().CreatedAt
		if !la.Equal(lb) {
			return la.After(lb)
		}
		return ga.UserName < gb.UserName
	})

	return groups
}
