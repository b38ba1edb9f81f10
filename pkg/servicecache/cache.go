// Package servicecache maintains the persisted index of services that
// declare a capability type through their meta-data.
package servicecache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/huanfeng/apkparse/pkg/pm"
	"github.com/huanfeng/apkparse/pkg/utils"
)

// ChangeKind says whether an owner appeared or disappeared.
type ChangeKind string

const (
	Added   ChangeKind = "added"
	Removed ChangeKind = "removed"
)

// Change is one difference between two generations of the cache.
type Change struct {
	Kind  ChangeKind       `json:"kind" yaml:"kind"`
	Type  string           `json:"type" yaml:"type"`
	Owner pm.ComponentName `json:"owner" yaml:"owner"`
}

type document struct {
	Version  int                           `yaml:"version"`
	Services map[string][]pm.ComponentName `yaml:"services"`
}

const documentVersion = 1

// Cache maps a service type to the components declaring it. It is safe
// for concurrent use.
type Cache struct {
	path   string
	types  map[string]bool
	logger utils.Logger

	mu       sync.RWMutex
	services map[string][]pm.ComponentName
}

// New creates an empty cache persisted at path that indexes the given
// service types.
func New(path string, serviceTypes []string, logger utils.Logger) *Cache {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	types := make(map[string]bool, len(serviceTypes))
	for _, t := range serviceTypes {
		types[t] = true
	}
	return &Cache{
		path:     path,
		types:    types,
		logger:   logger,
		services: make(map[string][]pm.ComponentName),
	}
}

// Load reads the persisted index. A missing file leaves the cache empty.
func (c *Cache) Load() error {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		c.logger.Debug("No service cache at %s", c.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read service cache: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse service cache %s: %w", c.path, err)
	}
	if doc.Version > documentVersion {
		return fmt.Errorf("service cache %s has unsupported version %d", c.path, doc.Version)
	}

	services := make(map[string][]pm.ComponentName, len(doc.Services))
	for t, owners := range doc.Services {
		services[t] = sortedOwners(owners)
	}
	c.mu.Lock()
	c.services = services
	c.mu.Unlock()
	return nil
}

// Save writes the index atomically.
func (c *Cache) Save() error {
	c.mu.RLock()
	doc := document{Version: documentVersion, Services: c.services}
	data, err := yaml.Marshal(&doc)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode service cache: %w", err)
	}

	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write service cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace service cache: %w", err)
	}
	return nil
}

// Owners returns the components registered for serviceType.
func (c *Cache) Owners(serviceType string) []pm.ComponentName {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]pm.ComponentName(nil), c.services[serviceType]...)
}

// Types returns the service types with at least one owner, sorted.
func (c *Cache) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	types := make([]string, 0, len(c.services))
	for t := range c.services {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Generate rebuilds the index from pkgs and returns how it differs from
// the previous generation, ordered by type, kind and owner.
func (c *Cache) Generate(pkgs []*pm.Package) []Change {
	next := make(map[string][]pm.ComponentName)
	for _, pkg := range pkgs {
		if pkg == nil {
			continue
		}
		for _, s := range pkg.Services {
			for key := range s.MetaData {
				if c.types[key] {
					next[key] = append(next[key], s.ComponentName())
				}
			}
		}
	}
	for t, owners := range next {
		next[t] = sortedOwners(owners)
	}

	c.mu.Lock()
	prev := c.services
	c.services = next
	c.mu.Unlock()

	changes := diff(prev, next)
	for _, ch := range changes {
		c.logger.Debug("Service %s %s: %s", ch.Type, ch.Kind, ch.Owner)
	}
	return changes
}

func diff(prev, next map[string][]pm.ComponentName) []Change {
	var changes []Change
	types := make(map[string]bool)
	for t := range prev {
		types[t] = true
	}
	for t := range next {
		types[t] = true
	}

	for t := range types {
		before := toSet(prev[t])
		after := toSet(next[t])
		for owner := range after {
			if !before[owner] {
				changes = append(changes, Change{Kind: Added, Type: t, Owner: owner})
			}
		}
		for owner := range before {
			if !after[owner] {
				changes = append(changes, Change{Kind: Removed, Type: t, Owner: owner})
			}
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		a, b := changes[i], changes[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return lessOwner(a.Owner, b.Owner)
	})
	return changes
}

func toSet(owners []pm.ComponentName) map[pm.ComponentName]bool {
	set := make(map[pm.ComponentName]bool, len(owners))
	for _, o := range owners {
		set[o] = true
	}
	return set
}

func sortedOwners(owners []pm.ComponentName) []pm.ComponentName {
	set := toSet(owners)
	out := make([]pm.ComponentName, 0, len(set))
	for o := range set {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return lessOwner(out[i], out[j]) })
	return out
}

func lessOwner(a, b pm.ComponentName) bool {
	if a.Package != b.Package {
		return a.Package < b.Package
	}
	return a.Class < b.Class
}
