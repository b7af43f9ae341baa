package config

import (
	"context"
	"strings"

	"github.com/mmdatafocus/costbook_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OwnerGuardPlugin adds `user_id = <ctx user>` to queries, updates and
// deletes of models that have a user_id column.
//
// Raw SQL is not scoped. Statements that already filter on user_id are
// left alone, and appctx.ContextKeySkipOwnerScope turns the guard off for
// internal jobs.
type OwnerGuardPlugin struct{}

func NewOwnerGuardPlugin() *OwnerGuardPlugin { return &OwnerGuardPlugin{} }

func (p *OwnerGuardPlugin) Name() string { return "owner_guard" }

func (p *OwnerGuardPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		name string
		err  error
	}{
		{"query", cb.Query().Before("gorm:query").Register("owner_guard:query", scopeToOwner)},
		{"row", cb.Row().Before("gorm:row").Register("owner_guard:row", scopeToOwner)},
		{"update", cb.Update().Before("gorm:update").Register("owner_guard:update", scopeToOwner)},
		{"delete", cb.Delete().Before("gorm:delete").Register("owner_guard:delete", scopeToOwner)},
	}
	for _, h := range hooks {
		if h.err != nil {
			return h.err
		}
	}
	return nil
}

func scopeToOwner(db *gorm.DB) {
	stmt := db.Statement
	if stmt == nil || stmt.Context == nil || stmt.Schema == nil {
		return
	}
	userId := ownerFromContext(stmt.Context)
	if userId == "" || stmt.Schema.LookUpField("user_id") == nil {
		return
	}
	if where, ok := stmt.Clauses["WHERE"].Expression.(clause.Where); ok && mentionsUserId(where.Exprs...) {
		return
	}
	stmt.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: clause.Column{Table: stmt.Table, Name: "user_id"}, Value: userId},
	}})
}

// ownerFromContext is "" when the guard does not apply.
func ownerFromContext(ctx context.Context) string {
	if skip, _ := appctx.GetBool(ctx, appctx.ContextKeySkipOwnerScope); skip {
		return ""
	}
	v, _ := appctx.GetString(ctx, appctx.ContextKeyUserId)
	return v
}

func mentionsUserId(exprs ...clause.Expression) bool {
	for _, e := range exprs {
		var hit bool
		switch v := e.(type) {
		case clause.Eq:
			hit = isUserIdColumn(v.Column)
		case clause.Neq:
			hit = isUserIdColumn(v.Column)
		case clause.IN:
			hit = isUserIdColumn(v.Column)
		case clause.AndConditions:
			hit = mentionsUserId(v.Exprs...)
		case clause.OrConditions:
			hit = mentionsUserId(v.Exprs...)
		case clause.Expr:
			hit = strings.Contains(strings.ToLower(v.SQL), "user_id")
		case clause.NamedExpr:
			hit = strings.Contains(strings.ToLower(v.SQL), "user_id")
		}
		if hit {
			return true
		}
	}
	return false
}

func isUserIdColumn(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "user_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "user_id")
	}
	return false
}
