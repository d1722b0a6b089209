package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strata-kb/strata/internal/model"
)

func chatItem(id, sourceID string, ts int64) model.ContentItem {
	return model.ContentItem{
		ID:         id,
		SourceType: model.SourceTypeChatChannel,
		SourceID:   sourceID,
		Content:    "message " + id,
		Timestamp:  ts,
	}
}

func TestGroupItems_Empty(t *testing.T) {
	groups := GroupItems(nil, DefaultGroupOptions())
	require.Empty(t, groups)
}

func TestGroupItems_SingleGroupWithinWindow(t *testing.T) {
	base := int64(1700000000)
	items := []model.ContentItem{
		chatItem("a", "chan-1", base),
		chatItem("b", "chan-1", base+300),
	}
	groups := GroupItems(items, DefaultGroupOptions())
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Items, 2)
	require.Equal(t, "chan-1", groups[0].SourceID)
}

func TestGroupItems_SplitsOnSourceChange(t *testing.T) {
	base := int64(1700000000)
	items := []model.ContentItem{
		chatItem("a", "chan-1", base),
		chatItem("b", "chan-2", base+10),
		chatItem("c", "chan-1", base+20),
	}
	groups := GroupItems(items, DefaultGroupOptions())
	require.Len(t, groups, 3)
}

func TestGroupItems_SplitsOnTimeGap(t *testing.T) {
	base := int64(1700000000)
	items := []model.ContentItem{
		chatItem("a", "chan-1", base),
		chatItem("b", "chan-1", base+3601),
	}
	groups := GroupItems(items, DefaultGroupOptions())
	require.Len(t, groups, 2)

	// A gap of exactly one hour stays in the same group.
	items[1].Timestamp = base + 3600
	groups = GroupItems(items, DefaultGroupOptions())
	require.Len(t, groups, 1)
}

func TestGroupItems_CapsGroupSize(t *testing.T) {
	base := int64(1700000000)
	items := make([]model.ContentItem, 0, 25)
	for i := 0; i < 25; i++ {
		items = append(items, chatItem(fmt.Sprintf("m%d", i), "chan-1", base+int64(i)))
	}
	groups := GroupItems(items, DefaultGroupOptions())
	require.Len(t, groups, 3)
	for _, g := range groups {
		require.LessOrEqual(t, len(g.Items), 10)
	}
}

func TestGroupItems_PartitionAndOrdering(t *testing.T) {
	base := int64(1700000000)
	items := []model.ContentItem{
		chatItem("d", "chan-2", base+9000),
		chatItem("a", "chan-1", base),
		chatItem("c", "chan-1", base+8000),
		chatItem("b", "chan-1", base+60),
	}
	groups := GroupItems(items, GroupOptions{MaxSize: 10, MaxGap: time.Hour})

	seen := make(map[string]int)
	var lastStart int64
	for _, g := range groups {
		require.GreaterOrEqual(t, g.StartTime(), lastStart)
		lastStart = g.StartTime()
		for _, item := range g.Items {
			require.Equal(t, g.SourceID, item.SourceID)
			seen[item.ID]++
		}
	}
	require.Len(t, seen, len(items))
	for id, count := range seen {
		require.Equal(t, 1, count, "item %s must appear exactly once", id)
	}
}

func TestContentGroup_SourceRefs(t *testing.T) {
	g := ContentGroup{
		SourceType: model.SourceTypeChatChannel,
		SourceID:   "chan-1",
		Items: []model.ContentItem{
			{ID: "a", SourceType: model.SourceTypeChatChannel, SourceID: "chan-1", Author: "kim", Timestamp: 10},
		},
	}
	refs := g.SourceRefs()
	require.Len(t, refs, 1)
	require.Equal(t, "kim", refs[0].Author)
	require.Equal(t, int64(10), refs[0].Timestamp)
}
