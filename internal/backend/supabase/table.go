package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/wonlinemenu/refadmin/internal/backend"
	"github.com/wonlinemenu/refadmin/internal/domain"
)

func (c *Client) References() backend.Table { return table{c} }

type table struct{ c *Client }

func (t table) path() string {
	return t.c.rest + "/" + url.PathEscape(t.c.cfg.Table)
}

// column maps a reference column to its name in the hosted table.
func (t table) column(col domain.ReferenceColumn) string {
	if col == domain.ReferenceColumnValue {
		return t.c.cfg.ValueColumn
	}
	return col.String()
}

// bearer returns the session access token for writes, refreshing first.
func (t table) bearer(ctx context.Context) (string, error) {
	s, err := t.c.CurrentSession(ctx)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", domain.ErrUnauthorized
	}
	return s.AccessToken, nil
}

func (t table) Select(ctx context.Context, q backend.Query) (backend.Result, error) {
	order := q.Order.OrderOrDefault()
	if !order.Column.IsValid() {
		return backend.Result{}, fmt.Errorf("supabase.Select: unknown column %q: %w", order.Column, domain.ErrValidation)
	}
	dir := "desc"
	if order.Ascending {
		dir = "asc"
	}

	params := url.Values{}
	params.Set("select", "id,"+t.c.cfg.ValueColumn+",created_at,updated_at")
	params.Set("order", t.column(order.Column)+"."+dir+",id."+dir)

	method := http.MethodGet
	if q.Head {
		method = http.MethodHead
	}
	headers := map[string]string{}
	if q.Count {
		headers["Prefer"] = "count=exact"
	}

	// Reads use the held session token, or the anon key when signed out.
	var bearer string
	if s := t.c.snapshot(); s != nil && !s.Expired(t.c.now()) {
		bearer = s.AccessToken
	}

	resp, err := t.c.do(ctx, method, t.path()+"?"+params.Encode(), nil, bearer, headers)
	if err != nil {
		return backend.Result{}, fmt.Errorf("supabase.Select: %w", err)
	}
	if resp.status >= 400 {
		return backend.Result{}, fmt.Errorf("supabase.Select: %w", parseError(resp.body, resp.status, false))
	}

	var res backend.Result
	if q.Count {
		n, err := parseContentRange(resp.header.Get("Content-Range"))
		if err != nil {
			return backend.Result{}, fmt.Errorf("supabase.Select: %w", err)
		}
		res.Count = n
	}
	if !q.Head {
		recs, err := t.decodeRows(resp.body)
		if err != nil {
			return backend.Result{}, fmt.Errorf("supabase.Select: %w", err)
		}
		res.Records = recs
	}
	return res, nil
}

func (t table) decodeRows(body []byte) ([]domain.Reference, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json body")
	}
	rows := gjson.ParseBytes(body)
	if !rows.IsArray() {
		return nil, fmt.Errorf("expected json array, got %s", rows.Type)
	}

	recs := make([]domain.Reference, 0, len(rows.Array()))
	var decodeErr error
	rows.ForEach(func(_, row gjson.Result) bool {
		created, err := time.Parse(time.RFC3339Nano, row.Get("created_at").String())
		if err != nil {
			decodeErr = fmt.Errorf("created_at: %w", err)
			return false
		}
		updated, err := time.Parse(time.RFC3339Nano, row.Get("updated_at").String())
		if err != nil {
			decodeErr = fmt.Errorf("updated_at: %w", err)
			return false
		}
		recs = append(recs, domain.Reference{
			ID:        row.Get("id").String(),
			Value:     row.Get(gjsonEscape(t.c.cfg.ValueColumn)).String(),
			CreatedAt: created,
			UpdatedAt: updated,
		})
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return recs, nil
}

// parseContentRange reads the total from "0-24/25" or "*/0".
func parseContentRange(h string) (int, error) {
	i := strings.LastIndexByte(h, '/')
	if i < 0 || i == len(h)-1 {
		return 0, fmt.Errorf("content-range %q has no total", h)
	}
	total := h[i+1:]
	if total == "*" {
		return 0, fmt.Errorf("content-range %q has unknown total", h)
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("content-range %q: %w", h, err)
	}
	return n, nil
}

func gjsonEscape(path string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(path)
}

func (t table) write(ctx context.Context, op, method, target string, payload map[string]any) error {
	bearer, err := t.bearer(ctx)
	if err != nil {
		return fmt.Errorf("supabase.%s: %w", op, err)
	}

	var body []byte
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("supabase.%s marshal: %w", op, err)
		}
	}

	resp, err := t.c.do(ctx, method, target, body, bearer, map[string]string{"Prefer": "return=minimal"})
	if err != nil {
		return fmt.Errorf("supabase.%s: %w", op, err)
	}
	if resp.status >= 400 {
		return fmt.Errorf("supabase.%s: %w", op, parseError(resp.body, resp.status, false))
	}
	return nil
}

func (t table) Insert(ctx context.Context, rec domain.NewReference) error {
	return t.write(ctx, "Insert", http.MethodPost, t.path(), map[string]any{
		t.c.cfg.ValueColumn: rec.Value,
		"created_at":        rec.CreatedAt.UTC(),
		"updated_at":        rec.UpdatedAt.UTC(),
	})
}

func (t table) Update(ctx context.Context, id string, patch domain.ReferencePatch) error {
	return t.write(ctx, "Update", http.MethodPatch, t.path()+"?id=eq."+url.QueryEscape(id), map[string]any{
		t.c.cfg.ValueColumn: patch.Value,
		"updated_at":        patch.UpdatedAt.UTC(),
	})
}

func (t table) Delete(ctx context.Context, id string) error {
	return t.write(ctx, "Delete", http.MethodDelete, t.path()+"?id=eq."+url.QueryEscape(id), nil)
}
