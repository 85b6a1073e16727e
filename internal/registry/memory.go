package registry

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/clinical-docs/internal/common"
)

// Write is one create recorded by Memory, in call order.
type Write struct {
	ResourceType string
	ID           string
	Body         json.RawMessage
}

// FailFunc can inject a failure before an operation runs. seq is the 1-based
// count of op calls for resourceType, including this one.
type FailFunc func(op, resourceType string, seq int) error

// Memory is an in-process registry. It backs dry runs and tests.
type Memory struct {
	mu        sync.Mutex
	resources map[string]map[string]json.RawMessage
	order     map[string][]string
	writes    []Write
	calls     map[string]int
	failFn    FailFunc
	log       *slog.Logger
}

var _ Client = (*Memory)(nil)

func NewMemory(logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		resources: make(map[string]map[string]json.RawMessage),
		order:     make(map[string][]string),
		calls:     make(map[string]int),
		log:       logger,
	}
}

// FailWith installs a failure hook; nil removes it.
func (m *Memory) FailWith(fn FailFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFn = fn
}

// Writes returns every successful create in order.
func (m *Memory) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Write, len(m.writes))
	copy(out, m.writes)
	return out
}

// WritesOf returns successful creates of one resource type in order.
func (m *Memory) WritesOf(resourceType string) []Write {
	var out []Write
	for _, w := range m.Writes() {
		if w.ResourceType == resourceType {
			out = append(out, w)
		}
	}
	return out
}

// Calls reports how many times op was invoked for resourceType, failures included.
func (m *Memory) Calls(op, resourceType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op+" "+resourceType]
}

// Put seeds a resource with a known id.
func (m *Memory) Put(resourceType, id string, resource any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.store(resourceType, id, resource)
	return err
}

func (m *Memory) Create(_ context.Context, resourceType string, resource any) (*Stored, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.before("create", resourceType); err != nil {
		return nil, err
	}
	stored, err := m.store(resourceType, uuid.New().String(), resource)
	if err != nil {
		return nil, &common.RegistryError{Op: "create", ResourceType: resourceType, Cause: err}
	}
	m.writes = append(m.writes, Write{ResourceType: resourceType, ID: stored.ID, Body: stored.Body})
	m.log.Debug("registry.memory.create", "resource_type", resourceType, "id", stored.ID)
	return stored, nil
}

func (m *Memory) Read(_ context.Context, resourceType, id string) (*Stored, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.before("read", resourceType); err != nil {
		return nil, err
	}
	body, ok := m.resources[resourceType][id]
	if !ok {
		return nil, &common.RegistryError{Op: "read", ResourceType: resourceType, StatusCode: 404,
			Diagnostics: fmt.Sprintf("%s/%s not found", resourceType, id), Cause: common.ErrNotFound}
	}
	return &Stored{ResourceType: resourceType, ID: id, Body: body}, nil
}

// Search supports name, patient, subject, _id, _sort (date) and _count.
func (m *Memory) Search(_ context.Context, resourceType string, params url.Values) ([]*Stored, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.before("search", resourceType); err != nil {
		return nil, err
	}

	var out []*Stored
	for _, id := range m.order[resourceType] {
		body := m.resources[resourceType][id]
		var doc map[string]any
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, &common.RegistryError{Op: "search", ResourceType: resourceType, Cause: err}
		}
		if matches(doc, params) {
			out = append(out, &Stored{ResourceType: resourceType, ID: id, Body: body})
		}
	}

	if sortKey := params.Get("_sort"); sortKey == "-date" || sortKey == "date" {
		desc := strings.HasPrefix(sortKey, "-")
		sort.SliceStable(out, func(i, j int) bool {
			di, dj := resourceDate(out[i].Body), resourceDate(out[j].Body)
			if desc {
				return di > dj
			}
			return di < dj
		})
	}
	if n, err := strconv.Atoi(params.Get("_count")); err == nil && n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out, nil
}

func (m *Memory) before(op, resourceType string) error {
	key := op + " " + resourceType
	m.calls[key]++
	if m.failFn == nil {
		return nil
	}
	if err := m.failFn(op, resourceType, m.calls[key]); err != nil {
		return &common.RegistryError{Op: op, ResourceType: resourceType, Cause: err}
	}
	return nil
}

func (m *Memory) store(resourceType, id string, resource any) (*Stored, error) {
	raw, err := json.Marshal(resource)
	if err != nil {
		return nil, fmt.Errorf("encode resource: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("resource is not an object: %w", err)
	}
	doc["resourceType"] = resourceType
	doc["id"] = id
	doc["meta"] = map[string]any{
		"versionId":   "1",
		"lastUpdated": time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode resource: %w", err)
	}

	if m.resources[resourceType] == nil {
		m.resources[resourceType] = make(map[string]json.RawMessage)
	}
	if _, exists := m.resources[resourceType][id]; !exists {
		m.order[resourceType] = append(m.order[resourceType], id)
	}
	m.resources[resourceType][id] = body
	return &Stored{ResourceType: resourceType, ID: id, Body: body}, nil
}

func matches(doc map[string]any, params url.Values) bool {
	for key, values := range params {
		if len(values) == 0 || strings.HasPrefix(key, "_") && key != "_id" {
			continue
		}
		want := values[0]
		switch key {
		case "_id":
			if doc["id"] != want {
				return false
			}
		case "name":
			if !nameMatches(doc, want) {
				return false
			}
		case "patient", "subject":
			if !referenceMatches(doc["subject"], want) {
				return false
			}
		}
	}
	return true
}

// nameMatches is a case-insensitive containment test over each name's text and parts.
func nameMatches(doc map[string]any, want string) bool {
	want = strings.ToLower(strings.TrimSpace(want))
	names, _ := doc["name"].([]any)
	for _, n := range names {
		name, ok := n.(map[string]any)
		if !ok {
			continue
		}
		var parts []string
		if given, ok := name["given"].([]any); ok {
			for _, g := range given {
				if s, ok := g.(string); ok {
					parts = append(parts, s)
				}
			}
		}
		if family, ok := name["family"].(string); ok {
			parts = append(parts, family)
		}
		full := strings.ToLower(strings.Join(parts, " "))
		text, _ := name["text"].(string)
		if strings.Contains(full, want) || strings.Contains(strings.ToLower(text), want) {
			return true
		}
	}
	return false
}

func referenceMatches(v any, want string) bool {
	ref, ok := v.(map[string]any)
	if !ok {
		return false
	}
	got, _ := ref["reference"].(string)
	if got == want {
		return true
	}
	// bare ids match "Patient/<id>"
	return !strings.Contains(want, "/") && strings.HasSuffix(got, "/"+want)
}

func resourceDate(body json.RawMessage) string {
	var doc struct {
		EffectiveDateTime string `json:"effectiveDateTime"`
		Issued            string `json:"issued"`
		Period            struct {
			Start string `json:"start"`
		} `json:"period"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return ""
	}
	switch {
	case doc.EffectiveDateTime != "":
		return doc.EffectiveDateTime
	case doc.Period.Start != "":
		return doc.Period.Start
	default:
		return doc.Issued
	}
}
