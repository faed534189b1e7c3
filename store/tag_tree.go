package store

import (
	"cmp"
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// TagDepth bounds how many parent levels and children levels a projection materializes.
// The zero value projects the tag alone.
type TagDepth struct {
	Parents  int
	Children int
}

// TagNode is a tag together with its parent chain and children subtree.
// Parent nodes carry no children and children carry no parent.
type TagNode struct {
	*Tag
	Parent   *TagNode
	Children []*TagNode
}

// TagHierarchy holds the tags and closure rows needed to project a set of tags.
type TagHierarchy struct {
	tags map[uuid.UUID]*Tag
	// ancestors maps a descendant to its ancestors keyed by distance.
	ancestors map[uuid.UUID]map[int]uuid.UUID
	// children maps a tag to its direct children.
	children map[uuid.UUID][]uuid.UUID
}

func NewTagHierarchy() *TagHierarchy {
	return &TagHierarchy{
		tags:      map[uuid.UUID]*Tag{},
		ancestors: map[uuid.UUID]map[int]uuid.UUID{},
		children:  map[uuid.UUID][]uuid.UUID{},
	}
}

// AddTags registers tag rows. The root tag is ignored.
func (h *TagHierarchy) AddTags(tags ...*Tag) {
	for _, tag := range tags {
		if tag.ID == RootTagID {
			continue
		}
		h.tags[tag.ID] = tag
	}
}

// AddAncestorPaths registers rows linking a projected tag to its ancestors.
func (h *TagHierarchy) AddAncestorPaths(paths ...*TagPath) {
	for _, path := range paths {
		if path.Distance == 0 {
			continue
		}
		byDistance, ok := h.ancestors[path.DescendantID]
		if !ok {
			byDistance = map[int]uuid.UUID{}
			h.ancestors[path.DescendantID] = byDistance
		}
		byDistance[path.Distance] = path.AncestorID
	}
}

// AddEdges registers parent-child rows (distance 1).
func (h *TagHierarchy) AddEdges(paths ...*TagPath) {
	for _, path := range paths {
		if path.Distance != 1 || slices.Contains(h.children[path.AncestorID], path.DescendantID) {
			continue
		}
		h.children[path.AncestorID] = append(h.children[path.AncestorID], path.DescendantID)
	}
}

// Project builds the nested view of tag bounded by depth.
func (h *TagHierarchy) Project(tag *Tag, depth TagDepth) *TagNode {
	node := &TagNode{Tag: tag}

	current := node
	for distance := 1; distance <= depth.Parents; distance++ {
		parentID, ok := h.ancestors[tag.ID][distance]
		if !ok {
			break
		}
		parent, ok := h.tags[parentID]
		if !ok {
			// The root tag ends every chain.
			break
		}
		current.Parent = &TagNode{Tag: parent}
		current = current.Parent
	}

	node.Children = h.projectChildren(tag.ID, depth.Children)
	return node
}

func (h *TagHierarchy) projectChildren(id uuid.UUID, depth int) []*TagNode {
	if depth <= 0 {
		return []*TagNode{}
	}

	children := make([]*Tag, 0, len(h.children[id]))
	for _, childID := range h.children[id] {
		if child, ok := h.tags[childID]; ok {
			children = append(children, child)
		}
	}
	slices.SortFunc(children, compareTags)

	nodes := make([]*TagNode, 0, len(children))
	for _, child := range children {
		nodes = append(nodes, &TagNode{
			Tag:      child,
			Children: h.projectChildren(child.ID, depth-1),
		})
	}
	return nodes
}

func compareTags(a, b *Tag) int {
	return cmp.Or(
		cmp.Compare(a.Kana, b.Kana),
		cmp.Compare(a.ID.String(), b.ID.String()),
	)
}

// ProjectTags loads the closure rows around tags and projects each of them per depth.
// The result preserves the order of tags.
func (s *Store) ProjectTags(ctx context.Context, tags []*Tag, depth TagDepth) ([]*TagNode, error) {
	hierarchy := NewTagHierarchy()
	hierarchy.AddTags(tags...)

	if depth.Parents > 0 || depth.Children > 0 {
		if err := s.loadTagHierarchy(ctx, hierarchy, tags, depth); err != nil {
			return nil, err
		}
	}

	nodes := make([]*TagNode, 0, len(tags))
	for _, tag := range tags {
		nodes = append(nodes, hierarchy.Project(tag, depth))
	}
	return nodes, nil
}

// ProjectTag is ProjectTags for a single tag.
func (s *Store) ProjectTag(ctx context.Context, tag *Tag, depth TagDepth) (*TagNode, error) {
	nodes, err := s.ProjectTags(ctx, []*Tag{tag}, depth)
	if err != nil {
		return nil, err
	}
	return nodes[0], nil
}

func (s *Store) loadTagHierarchy(ctx context.Context, hierarchy *TagHierarchy, tags []*Tag, depth TagDepth) error {
	ids := make([]uuid.UUID, 0, len(tags))
	for _, tag := range tags {
		ids = append(ids, tag.ID)
	}

	var ancestorPaths, descendantPaths []*TagPath
	minDistance := 1
	g, gctx := errgroup.WithContext(ctx)
	if depth.Parents > 0 {
		g.Go(func() error {
			var err error
			ancestorPaths, err = s.ListTagPaths(gctx, &FindTagPath{
				DescendantIDs: ids,
				MinDistance:   &minDistance,
				MaxDistance:   &depth.Parents,
			})
			return err
		})
	}
	if depth.Children > 0 {
		g.Go(func() error {
			var err error
			descendantPaths, err = s.ListTagPaths(gctx, &FindTagPath{
				AncestorIDs: ids,
				MinDistance: &minDistance,
				MaxDistance: &depth.Children,
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "failed to load tag hierarchy")
	}
	hierarchy.AddAncestorPaths(ancestorPaths...)

	referenced := map[uuid.UUID]struct{}{}
	for _, path := range ancestorPaths {
		referenced[path.AncestorID] = struct{}{}
	}
	descendantIDs := make([]uuid.UUID, 0, len(descendantPaths))
	seen := map[uuid.UUID]struct{}{}
	for _, path := range descendantPaths {
		if _, ok := seen[path.DescendantID]; !ok {
			seen[path.DescendantID] = struct{}{}
			descendantIDs = append(descendantIDs, path.DescendantID)
		}
		referenced[path.DescendantID] = struct{}{}
	}

	if len(descendantIDs) > 0 {
		edgeDistance := 1
		edges, err := s.ListTagPaths(ctx, &FindTagPath{
			DescendantIDs: descendantIDs,
			MinDistance:   &edgeDistance,
			MaxDistance:   &edgeDistance,
		})
		if err != nil {
			return errors.Wrap(err, "failed to load tag edges")
		}
		hierarchy.AddEdges(edges...)
	}

	missing := make([]uuid.UUID, 0, len(referenced))
	for id := range referenced {
		if _, ok := hierarchy.tags[id]; !ok && id != RootTagID {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	related, err := s.ListTags(ctx, &FindTag{IDs: missing})
	if err != nil {
		return err
	}
	hierarchy.AddTags(related...)
	return nil
}
