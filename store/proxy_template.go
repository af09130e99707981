package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/corvus-sh/orchd/corvuserr"
	"github.com/corvus-sh/orchd/model"
)

// CreateProxyTemplate inserts a named proxy template. Name is the primary
// key; there is no owning namespace or cluster, templates are shared and
// referenced by name from any cluster's proxy_templates list (§3).
func (s *Store) CreateProxyTemplate(ctx context.Context, name string, mode model.ProxyTemplateMode, content string) (*model.ProxyTemplate, error) {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO proxy_templates (name, mode, content) VALUES (?, ?, ?)`,
		name, string(mode), content,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, corvuserr.New(corvuserr.Conflict, fmt.Sprintf("proxy template %q already exists", name))
		}
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to create proxy template", err)
	}
	return &model.ProxyTemplate{Name: name, Mode: mode, Content: content}, nil
}

// GetProxyTemplate fetches a proxy template by name, NotFound if missing
// (§4.4 step 1: "Load the ProxyTemplate row by name (error if missing)").
func (s *Store) GetProxyTemplate(ctx context.Context, name string) (*model.ProxyTemplate, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT name, mode, content FROM proxy_templates WHERE name = ?`, name)
	var tpl model.ProxyTemplate
	var mode string
	err := row.Scan(&tpl.Name, &mode, &tpl.Content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, corvuserr.New(corvuserr.NotFound, fmt.Sprintf("proxy template %q not found", name))
		}
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to get proxy template", err)
	}
	tpl.Mode = model.ProxyTemplateMode(mode)
	return &tpl, nil
}

// ListProxyTemplates lists every proxy template.
func (s *Store) ListProxyTemplates(ctx context.Context) ([]*model.ProxyTemplate, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT name, mode, content FROM proxy_templates ORDER BY name`)
	if err != nil {
		return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to list proxy templates", err)
	}
	defer rows.Close()

	var out []*model.ProxyTemplate
	for rows.Next() {
		var tpl model.ProxyTemplate
		var mode string
		if err := rows.Scan(&tpl.Name, &mode, &tpl.Content); err != nil {
			return nil, corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to scan proxy template row", err)
		}
		tpl.Mode = model.ProxyTemplateMode(mode)
		out = append(out, &tpl)
	}
	return out, rows.Err()
}

// DeleteProxyTemplate removes a proxy template by name.
func (s *Store) DeleteProxyTemplate(ctx context.Context, name string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM proxy_templates WHERE name = ?`, name)
	if err != nil {
		return corvuserr.Wrap(corvuserr.StoreUnavailable, "failed to delete proxy template", err)
	}
	return requireRowAffected(result, fmt.Sprintf("proxy template %q not found", name))
}
