package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SupabaseConfig configures the Supabase Storage client.
type SupabaseConfig struct {
	ProjectURL string
	// ServiceKey is the service-role key; it bypasses row level security.
	ServiceKey string
	Bucket     string
	HTTPClient *http.Client
}

// Supabase talks to the Supabase Storage REST API of one bucket.
type Supabase struct {
	base   string
	key    string
	bucket string
	client *http.Client
}

func NewSupabase(cfg SupabaseConfig) *Supabase {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Supabase{
		base:   strings.TrimRight(cfg.ProjectURL, "/"),
		key:    cfg.ServiceKey,
		bucket: cfg.Bucket,
		client: client,
	}
}

type listRequest struct {
	Prefix string `json:"prefix"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type listEntry struct {
	Name string `json:"name"`
}

const listPageSize = 100

// List pages through POST /storage/v1/object/list/{bucket}. Supabase
// returns names relative to the prefix folder; they are joined back into
// full keys.
func (s *Supabase) List(ctx context.Context, prefix string) ([]string, error) {
	folder := strings.Trim(prefix, "/")
	var keys []string
	for offset := 0; ; offset += listPageSize {
		payload, err := json.Marshal(listRequest{Prefix: folder, Limit: listPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		var entries []listEntry
		if err := s.do(ctx, http.MethodPost, "/object/list/"+url.PathEscape(s.bucket), "application/json", bytes.NewReader(payload), &entries); err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Name == "" {
				continue
			}
			if folder == "" {
				keys = append(keys, e.Name)
			} else {
				keys = append(keys, folder+"/"+e.Name)
			}
		}
		if len(entries) < listPageSize {
			return keys, nil
		}
	}
}

// Upload issues POST /storage/v1/object/{bucket}/{key} with upsert enabled.
func (s *Supabase) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	if err := s.ready(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL(key), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")
	return s.send(req, nil)
}

type removeRequest struct {
	Prefixes []string `json:"prefixes"`
}

// Remove issues DELETE /storage/v1/object/{bucket} for a batch of keys.
func (s *Supabase) Remove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	payload, err := json.Marshal(removeRequest{Prefixes: keys})
	if err != nil {
		return err
	}
	return s.do(ctx, http.MethodDelete, "/object/"+url.PathEscape(s.bucket), "application/json", bytes.NewReader(payload), nil)
}

// PublicURL follows Supabase's public object scheme
// <base>/storage/v1/object/public/<bucket>/<key>.
func (s *Supabase) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.base, s.bucket, strings.TrimLeft(key, "/"))
}

func (s *Supabase) objectURL(key string) string {
	parts := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.base + "/storage/v1/object/" + url.PathEscape(s.bucket) + "/" + strings.Join(parts, "/")
}

func (s *Supabase) ready() error {
	if s.base == "" || s.key == "" {
		return ErrNotConfigured
	}
	return nil
}

func (s *Supabase) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	if err := s.ready(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, s.base+"/storage/v1"+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return s.send(req, out)
}

func (s *Supabase) send(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("apikey", s.key)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("storage %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("storage %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("storage %s %s: decode: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
