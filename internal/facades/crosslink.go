package facades

import (
	"context"
	"time"

	"github.com/moolen/magma/internal/logging"
	"github.com/moolen/magma/internal/merrors"
	"github.com/moolen/magma/internal/store"
)

// CrossLinker is the facade over the X_* cross-graph edges.
type CrossLinker struct {
	store  store.Adapter
	logger *logging.Logger
}

// NewCrossLinker constructs a CrossLinker facade.
func NewCrossLinker(adapter store.Adapter) *CrossLinker {
	return &CrossLinker{store: adapter, logger: logging.GetLogger("facades.crosslink")}
}

// CreateLink creates a cross-graph edge of linkType from sourceUUID to
// targetUUID.
func (c *CrossLinker) CreateLink(ctx context.Context, sourceUUID, targetUUID string, linkType store.CrossLinkType) error {
	if sourceUUID == targetUUID {
		return merrors.New(merrors.KindRelationship, "crosslink.createLink", "a node cannot cross-link to itself")
	}

	props := map[string]interface{}{"createdAt": time.Now().UnixNano()}
	if err := c.store.CreateRelationship(ctx, sourceUUID, targetUUID, store.RelationType(linkType), props); err != nil {
		return merrors.Wrap(merrors.KindRelationship, "crosslink.createLink", err)
	}
	return nil
}

// GetLinksFrom returns the cross-links of linkType originating at
// sourceUUID.
func (c *CrossLinker) GetLinksFrom(ctx context.Context, sourceUUID string, linkType store.CrossLinkType) ([]store.CrossLink, error) {
	links, err := c.store.GetCrossLinksFrom(ctx, sourceUUID, linkType)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindBackend, "crosslink.getLinksFrom", err)
	}
	return links, nil
}

// GetLinksTo returns the cross-links of linkType terminating at
// targetUUID.
func (c *CrossLinker) GetLinksTo(ctx context.Context, targetUUID string, linkType store.CrossLinkType) ([]store.CrossLink, error) {
	links, err := c.store.GetCrossLinksTo(ctx, targetUUID, linkType)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindBackend, "crosslink.getLinksTo", err)
	}
	return links, nil
}

// RemoveLink deletes the cross-link of linkType between sourceUUID and
// targetUUID, reporting whether one was found.
func (c *CrossLinker) RemoveLink(ctx context.Context, sourceUUID, targetUUID string, linkType store.CrossLinkType) (bool, error) {
	ok, err := c.store.RemoveCrossLink(ctx, sourceUUID, targetUUID, linkType)
	if err != nil {
		return false, merrors.Wrap(merrors.KindRelationship, "crosslink.removeLink", err)
	}
	return ok, nil
}

// RemoveAllLinksFrom removes every cross-link of linkType originating at
// sourceUUID, returning the count removed.
func (c *CrossLinker) RemoveAllLinksFrom(ctx context.Context, sourceUUID string, linkType store.CrossLinkType) (int, error) {
	links, err := c.GetLinksFrom(ctx, sourceUUID, linkType)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, l := range links {
		ok, err := c.RemoveLink(ctx, l.SourceUUID, l.TargetUUID, linkType)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// RemoveAllLinksTo removes every cross-link of linkType terminating at
// targetUUID, returning the count removed.
func (c *CrossLinker) RemoveAllLinksTo(ctx context.Context, targetUUID string, linkType store.CrossLinkType) (int, error) {
	links, err := c.GetLinksTo(ctx, targetUUID, linkType)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, l := range links {
		ok, err := c.RemoveLink(ctx, l.SourceUUID, l.TargetUUID, linkType)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// LinkStatistics summarizes cross-link counts by type.
type LinkStatistics struct {
	TotalLinks int
	ByType     map[store.CrossLinkType]int
}

// GetStatistics returns aggregate counts for every cross-link type
// originating at any of the given source uuids.
func (c *CrossLinker) GetStatistics(ctx context.Context, sourceUUIDs []string) (LinkStatistics, error) {
	stats := LinkStatistics{ByType: map[store.CrossLinkType]int{}}
	linkTypes := []store.CrossLinkType{store.CrossLinkRepresents, store.CrossLinkInvolves, store.CrossLinkRefersTo, store.CrossLinkAffects}

	for _, id := range sourceUUIDs {
		for _, lt := range linkTypes {
			links, err := c.GetLinksFrom(ctx, id, lt)
			if err != nil {
				return LinkStatistics{}, err
			}
			stats.ByType[lt] += len(links)
			stats.TotalLinks += len(links)
		}
	}
	return stats, nil
}

// HasLink reports whether a cross-link of linkType exists from sourceUUID
// to targetUUID.
func (c *CrossLinker) HasLink(ctx context.Context, sourceUUID, targetUUID string, linkType store.CrossLinkType) (bool, error) {
	links, err := c.GetLinksFrom(ctx, sourceUUID, linkType)
	if err != nil {
		return false, err
	}
	for _, l := range links {
		if l.TargetUUID == targetUUID {
			return true, nil
		}
	}
	return false, nil
}

// GetLinksByType returns every cross-link of linkType originating at any
// of the given source uuids.
func (c *CrossLinker) GetLinksByType(ctx context.Context, sourceUUIDs []string, linkType store.CrossLinkType) ([]store.CrossLink, error) {
	var all []store.CrossLink
	for _, uuid := range sourceUUIDs {
		links, err := c.GetLinksFrom(ctx, uuid, linkType)
		if err != nil {
			return nil, err
		}
		all = append(all, links...)
	}
	return all, nil
}

// FindOrphans returns every uuid in candidates that has no outgoing
// cross-link of any of the given link types.
func (c *CrossLinker) FindOrphans(ctx context.Context, candidates []string, linkTypes []store.CrossLinkType) ([]string, error) {
	var orphans []string
	for _, uuid := range candidates {
		linked := false
		for _, lt := range linkTypes {
			links, err := c.GetLinksFrom(ctx, uuid, lt)
			if err != nil {
				return nil, err
			}
			if len(links) > 0 {
				linked = true
				break
			}
		}
		if !linked {
			orphans = append(orphans, uuid)
		}
	}
	return orphans, nil
}
