// Package authz decides what an identity may do. The answer only shapes the
// UI and the API surface offered to a client; it is not a data-level access
// control.
package authz

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"storefront/internal/models"
	"storefront/internal/remote"
)

const rolesCollection = "roles"

type role struct {
	CatalogAdmin bool `json:"catalogAdmin"`
}

// Policy grants catalog management to the configured admin e-mails and to any
// identity whose roles/<uid> record says catalogAdmin.
type Policy struct {
	admins map[string]struct{}
	docs   remote.Documents
	log    zerolog.Logger
}

// New builds a policy. docs may be nil to rely on the e-mail roster alone.
func New(adminEmails []string, docs remote.Documents, log zerolog.Logger) *Policy {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			admins[e] = struct{}{}
		}
	}
	return &Policy{admins: admins, docs: docs, log: log}
}

// Capabilities never fails: an unreadable role record grants nothing.
func (p *Policy) Capabilities(ctx context.Context, id models.Identity) models.Capabilities {
	if id.UID == "" {
		return models.Capabilities{}
	}
	if _, ok := p.admins[strings.ToLower(id.Email)]; ok {
		return models.Capabilities{CanManageCatalog: true}
	}
	if p.docs == nil {
		return models.Capabilities{}
	}
	doc, err := p.docs.Get(ctx, rolesCollection, id.UID)
	if err != nil {
		if !errors.Is(err, remote.ErrNotFound) {
			p.log.Warn().Err(err).Str("uid", id.UID).Msg("role record unreadable")
		}
		return models.Capabilities{}
	}
	var r role
	if err := remote.Decode(doc.Data, &r); err != nil {
		return models.Capabilities{}
	}
	return models.Capabilities{CanManageCatalog: r.CatalogAdmin}
}
