package storage

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
)

// Object is a stored blob kept by Memory.
type Object struct {
	ContentType string
	Data        []byte
}

// Memory is an in-process ObjectStore for local development and tests.
// The Fail* hooks make the matching operation return the given error.
type Memory struct {
	mu      sync.Mutex
	base    string
	objects map[string]Object

	FailList   error
	FailUpload error
	FailRemove error
	// Calls counts every List/Upload/Remove invocation.
	Calls int
}

func NewMemory(publicBase string) *Memory {
	return &Memory{base: strings.TrimRight(publicBase, "/"), objects: map[string]Object{}}
}

func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.FailList != nil {
		return nil, m.FailList
	}
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Upload(_ context.Context, key, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.FailUpload != nil {
		return m.FailUpload
	}
	m.objects[key] = Object{ContentType: contentType, Data: data}
	return nil
}

func (m *Memory) Remove(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.FailRemove != nil {
		return m.FailRemove
	}
	for _, k := range keys {
		delete(m.objects, k)
	}
	return nil
}

func (m *Memory) PublicURL(key string) string {
	return m.base + "/" + strings.TrimLeft(key, "/")
}

// Get returns a stored object.
func (m *Memory) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	return o, ok
}

// Keys returns every stored key in order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
