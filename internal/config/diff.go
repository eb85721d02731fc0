// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Changes returns the YAML paths (e.g. "thresholds.cpu_temp_warning_c") of
// every setting that differs between old and updated, sorted.
func Changes(old, updated AppConfig) []string {
	r := &changeReporter{seen: map[string]struct{}{}}
	cmp.Equal(old, updated, cmpopts.IgnoreFields(AppConfig{}, "Version"), cmp.Reporter(r))
	sort.Strings(r.changes)
	return r.changes
}

type changeReporter struct {
	path    cmp.Path
	changes []string
	seen    map[string]struct{}
}

func (r *changeReporter) PushStep(ps cmp.PathStep) {
	r.path = append(r.path, ps)
}

func (r *changeReporter) Report(rs cmp.Result) {
	if rs.Equal() {
		return
	}
	p := yamlPath(r.path)
	if _, dup := r.seen[p]; dup {
		return
	}
	r.seen[p] = struct{}{}
	r.changes = append(r.changes, p)
}

func (r *changeReporter) PopStep() {
	r.path = r.path[:len(r.path)-1]
}

// yamlPath renders the struct fields of p using their yaml tag names.
func yamlPath(p cmp.Path) string {
	parts := make([]string, 0, len(p))
	for i, step := range p {
		sf, ok := step.(cmp.StructField)
		if !ok || i == 0 {
			continue
		}
		name := sf.Name()
		if f, ok := p[i-1].Type().FieldByName(name); ok {
			if tag, _, _ := strings.Cut(f.Tag.Get("yaml"), ","); tag != "" && tag != "-" {
				name = tag
			}
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, ".")
}
