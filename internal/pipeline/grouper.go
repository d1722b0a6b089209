package pipeline

import (
	"sort"
	"time"

	"github.com/strata-kb/strata/internal/model"
)

const (
	defaultMaxGroupSize = 10
	defaultMaxGap       = time.Hour
)

// ContentGroup is an ordered run of items from the same source that sit close
// enough in time to likely describe one topic.
type ContentGroup struct {
	SourceType model.SourceType    `json:"source_type"`
	SourceID   string              `json:"source_id"`
	Items      []model.ContentItem `json:"items"`
}

func (g *ContentGroup) StartTime() int64 {
	if len(g.Items) == 0 {
		return 0
	}
	return g.Items[0].Timestamp
}

// SourceRefs flattens the group's items into draft source references.
func (g *ContentGroup) SourceRefs() []model.SourceReference {
	refs := make([]model.SourceReference, 0, len(g.Items))
	for _, item := range g.Items {
		refs = append(refs, model.SourceReference{
			SourceType: item.SourceType,
			SourceID:   item.SourceID,
			Author:     item.Author,
			URL:        item.URL,
			Timestamp:  item.Timestamp,
		})
	}
	return refs
}

type GroupOptions struct {
	MaxSize int
	MaxGap  time.Duration
}

func DefaultGroupOptions() GroupOptions {
	return GroupOptions{MaxSize: defaultMaxGroupSize, MaxGap: defaultMaxGap}
}

// GroupItems partitions items into content groups: sorted by timestamp, a new
// group starts on a source change, a gap beyond MaxGap, or when the current
// group hits MaxSize. Every input item lands in exactly one group.
func GroupItems(items []model.ContentItem, opts GroupOptions) []ContentGroup {
	if opts.MaxSize <= 0 {
		opts.MaxSize = defaultMaxGroupSize
	}
	if opts.MaxGap <= 0 {
		opts.MaxGap = defaultMaxGap
	}
	if len(items) == 0 {
		return []ContentGroup{}
	}

	sorted := make([]model.ContentItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	maxGapSeconds := int64(opts.MaxGap / time.Second)
	groups := make([]ContentGroup, 0)
	current := ContentGroup{
		SourceType: sorted[0].SourceType,
		SourceID:   sorted[0].SourceID,
		Items:      []model.ContentItem{sorted[0]},
	}
	for _, item := range sorted[1:] {
		prev := current.Items[len(current.Items)-1]
		split := len(current.Items) >= opts.MaxSize ||
			item.SourceID != prev.SourceID ||
			item.Timestamp-prev.Timestamp > maxGapSeconds
		if split {
			groups = append(groups, current)
			current = ContentGroup{
				SourceType: item.SourceType,
				SourceID:   item.SourceID,
				Items:      []model.ContentItem{item},
			}
			continue
		}
		current.Items = append(current.Items, item)
	}
	groups = append(groups, current)
	return groups
}
