package main

import "testing"

func queryRefs(g *SpatialGrid, x, y, r float64) map[string]bool {
	found := map[string]bool{}
	for _, ref := range g.Query(x, y, r, nil) {
		found[ref.ID] = true
	}
	return found
}

func TestGridFindsNearbyEntities(t *testing.T) {
	g := NewSpatialGrid(1000, 100)
	g.Insert(0, 0, 20, EntityRef{Kind: KindMob, ID: "near"})
	g.Insert(500, 500, 20, EntityRef{Kind: KindMob, ID: "far"})

	found := queryRefs(g, 10, 10, 50)
	if !found["near"] {
		t.Error("query should return the nearby entity")
	}
	if found["far"] {
		t.Error("query should not return an entity cells away")
	}
}

func TestGridHandlesBoundaryPositions(t *testing.T) {
	g := NewSpatialGrid(1000, 100)
	g.Insert(-1000, -1000, 20, EntityRef{Kind: KindPlayer, ID: "corner"})
	g.Insert(1000, 1000, 20, EntityRef{Kind: KindPlayer, ID: "other"})

	if !queryRefs(g, -990, -990, 30)["corner"] {
		t.Error("entity at the negative bound should be indexed")
	}
	if !queryRefs(g, 990, 990, 30)["other"] {
		t.Error("entity at the positive bound should be indexed")
	}
}

func TestGridClear(t *testing.T) {
	g := NewSpatialGrid(1000, 100)
	g.Insert(0, 0, 20, EntityRef{Kind: KindMob, ID: "m"})
	g.Clear()
	if len(queryRefs(g, 0, 0, 50)) != 0 {
		t.Error("cleared grid should be empty")
	}
}

func TestGridSpanningEntity(t *testing.T) {
	g := NewSpatialGrid(1000, 100)
	// Radius larger than a cell: the entity spans several cells and must
	// be found from any of them.
	g.Insert(0, 0, 150, EntityRef{Kind: KindMob, ID: "big"})
	if !queryRefs(g, 120, 0, 10)["big"] {
		t.Error("large entity should be reachable from adjacent cells")
	}
}
