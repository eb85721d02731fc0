// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package preflight

import (
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/preflight/internal/ports"
)

// sourceID is the identity of a source within its scene.
func sourceID(scene, source string) string {
	return scene + ":" + source
}

// unavailableSources scans every scene concurrently and returns the set of
// unavailable "scene:source" identities, sorted and deduplicated so the
// result does not depend on scan order.
func unavailableSources(scenes []ports.Scene) []string {
	perScene := make([][]string, len(scenes))

	var g errgroup.Group
	for i, scene := range scenes {
		g.Go(func() error {
			for _, src := range scene.Sources {
				if !src.Available {
					perScene[i] = append(perScene[i], sourceID(scene.Name, src.Name))
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]struct{})
	out := []string{}
	for _, ids := range perScene {
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
