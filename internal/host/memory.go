package host

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/frameless-media/datatables/pkg/core"
)

// MemoryHost is an in-memory implementation of the host contracts. It backs
// the unit tests and can be seeded from a YAML fixture for local preview.
type MemoryHost struct {
	mu        sync.RWMutex
	templates map[string]bool
	fields    map[string]FieldMeta
	records   map[string][]*MemoryRecord
	instances map[string]core.TableInstance
	nextID    int64
}

// NewMemoryHost creates an empty in-memory host.
func NewMemoryHost() *MemoryHost {
	return &MemoryHost{
		templates: make(map[string]bool),
		fields:    make(map[string]FieldMeta),
		records:   make(map[string][]*MemoryRecord),
		instances: make(map[string]core.TableInstance),
		nextID:    1000,
	}
}

// MemoryRecord implements Record over a plain map.
type MemoryRecord struct {
	id   int64
	data map[string]any
}

// NewMemoryRecord wraps a value map as a record.
func NewMemoryRecord(id int64, data map[string]any) *MemoryRecord {
	return &MemoryRecord{id: id, data: data}
}

func (r *MemoryRecord) ID() int64 { return r.id }

func (r *MemoryRecord) Get(name string) any {
	if name == "id" {
		return r.id
	}
	return r.data[name]
}

func (r *MemoryRecord) Data() map[string]any { return r.data }

// AddTemplate registers a record template.
func (h *MemoryHost) AddTemplate(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.templates[name] = true
}

// AddField registers a field with its declared type and label.
func (h *MemoryHost) AddField(name string, meta FieldMeta) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fields[name] = meta
}

// AddRecord appends a record under the given template and returns its id.
func (h *MemoryHost) AddRecord(template string, data map[string]any) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	if _, ok := data["created"]; !ok {
		data["created"] = time.Now()
	}
	h.records[template] = append(h.records[template], &MemoryRecord{id: h.nextID, data: data})
	return h.nextID
}

// HasTemplate implements TemplateRegistry.
func (h *MemoryHost) HasTemplate(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.templates[name]
}

// GetFieldMeta implements FieldRegistry.
func (h *MemoryHost) GetFieldMeta(name string) (FieldMeta, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	meta, ok := h.fields[name]
	return meta, ok
}

// FindRecords implements Repository. The filter is a comma-separated list of
// name=value equality terms; an empty filter matches everything.
func (h *MemoryHost) FindRecords(_ context.Context, template, filter string, limit, offset int) ([]Record, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	matched := h.match(template, filter)
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	out := make([]Record, len(matched))
	for i, r := range matched {
		out[i] = r
	}
	return out, nil
}

// CountRecords implements Repository.
func (h *MemoryHost) CountRecords(_ context.Context, template, filter string) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.match(template, filter)), nil
}

func (h *MemoryHost) match(template, filter string) []*MemoryRecord {
	var out []*MemoryRecord
	for _, r := range h.records[template] {
		if matchesFilter(r, filter) {
			out = append(out, r)
		}
	}
	return out
}

func matchesFilter(r *MemoryRecord, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}
	for _, term := range strings.Split(filter, ",") {
		name, want, ok := strings.Cut(strings.TrimSpace(term), "=")
		if !ok {
			continue
		}
		got := r.Get(strings.TrimSpace(name))
		if fmt.Sprint(got) != strings.TrimSpace(want) {
			return false
		}
	}
	return true
}

// ListInstances implements InstanceStore.
func (h *MemoryHost) ListInstances(_ context.Context) ([]core.TableInstance, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]core.TableInstance, 0, len(h.instances))
	for _, inst := range h.instances {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetInstance implements InstanceStore.
func (h *MemoryHost) GetInstance(_ context.Context, name string) (*core.TableInstance, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	inst, ok := h.instances[name]
	if !ok {
		return nil, fmt.Errorf("table instance %q not found", name)
	}
	return &inst, nil
}

// SaveInstance implements InstanceStore.
func (h *MemoryHost) SaveInstance(_ context.Context, inst *core.TableInstance) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.instances[inst.Name] = *inst
	return nil
}

// DeleteInstance implements InstanceStore.
func (h *MemoryHost) DeleteInstance(_ context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.instances, name)
	return nil
}
