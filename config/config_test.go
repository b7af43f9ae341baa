package config

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mmdatafocus/costbook_backend/appctx"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm/clause"
)

type ownedNote struct {
	ID     int
	UserId string
	Body   string
}

func openNotes(t *testing.T) context.Context {
	t.Helper()
	conn, err := OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := conn.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := conn.AutoMigrate(&ownedNote{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, n := range []ownedNote{{UserId: "ana", Body: "a"}, {UserId: "bia", Body: "b"}} {
		if err := conn.Create(&n).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	SetDB(conn)
	return context.Background()
}

func TestOwnerGuardScopesToContextUser(t *testing.T) {
	ctx := openNotes(t)

	tests := []struct {
		name string
		ctx  context.Context
		want int
	}{
		{"anonymous sees all", ctx, 2},
		{"user sees own", appctx.Set(ctx, appctx.ContextKeyUserId, "ana"), 1},
		{"skip scope sees all", appctx.Set(appctx.Set(ctx, appctx.ContextKeyUserId, "ana"), appctx.ContextKeySkipOwnerScope, true), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var notes []ownedNote
			if err := GetDB().WithContext(tt.ctx).Find(&notes).Error; err != nil {
				t.Fatalf("find: %v", err)
			}
			if len(notes) != tt.want {
				t.Fatalf("expected %d notes, got %d", tt.want, len(notes))
			}
		})
	}
}

func TestOwnerGuardBlocksForeignDelete(t *testing.T) {
	ctx := openNotes(t)
	asAna := appctx.Set(ctx, appctx.ContextKeyUserId, "ana")

	res := GetDB().WithContext(asAna).Where("body = ?", "b").Delete(&ownedNote{})
	if res.Error != nil {
		t.Fatalf("delete: %v", res.Error)
	}
	if res.RowsAffected != 0 {
		t.Fatalf("foreign delete expected 0 rows, got %d", res.RowsAffected)
	}
}

func TestMentionsUserId(t *testing.T) {
	tests := []struct {
		name string
		expr clause.Expression
		want bool
	}{
		{"eq column", clause.Eq{Column: clause.Column{Name: "user_id"}}, true},
		{"eq other", clause.Eq{Column: "id"}, false},
		{"raw sql", clause.Expr{SQL: "USER_ID = ?"}, true},
		{"nested and", clause.AndConditions{Exprs: []clause.Expression{clause.IN{Column: "user_id"}}}, true},
		{"nested or", clause.OrConditions{Exprs: []clause.Expression{clause.Expr{SQL: "title = ?"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mentionsUserId(tt.expr); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

// Run with -race: the connect loop swaps handles while requests read them.
func TestHandlesSwapConcurrently(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	t.Cleanup(func() { SetRedisDB(nil) })

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				SetRedisDB(client)
				SetRedisDB(nil)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = GetRedisDB(), GetRedisLock()
				_ = GetDB()
			}
		}()
	}
	wg.Wait()

	SetRedisDB(client)
	if GetRedisDB() != client || GetRedisLock() == nil {
		t.Fatalf("expected client and locker after SetRedisDB")
	}
	SetRedisDB(nil)
	if GetRedisDB() != nil || GetRedisLock() != nil {
		t.Fatalf("expected nil handles after SetRedisDB(nil)")
	}
}
