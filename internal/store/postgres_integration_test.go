//go:build postgres_integration

package store

import (
    "context"
    "os"
    "testing"

    "haulplan/internal/model"
)

func TestPostgresConnectivityAndMigrate(t *testing.T) {
    dsn := os.Getenv("DATABASE_URL")
    if dsn == "" { t.Skip("DATABASE_URL not set; skipping integration test") }
    p, err := NewPostgres(dsn)
    if err != nil { t.Fatalf("NewPostgres: %v", err) }
    if err := p.Ping(context.Background()); err != nil { t.Fatalf("Ping: %v", err) }
    if err := p.MigrateDir("../../db/migrations"); err != nil { t.Fatalf("MigrateDir: %v", err) }
    if _, _, err := p.ListRigs(context.Background(), "t_demo", "", 1); err != nil { t.Fatalf("ListRigs: %v", err) }
}

func TestPostgresRigRoundTrip(t *testing.T) {
    dsn := os.Getenv("DATABASE_URL")
    if dsn == "" { t.Skip("DATABASE_URL not set; skipping integration test") }
    p, err := NewPostgres(dsn)
    if err != nil { t.Fatalf("NewPostgres: %v", err) }
    if err := p.MigrateDir("../../db/migrations"); err != nil { t.Fatalf("MigrateDir: %v", err) }
    r, err := p.CreateRig(context.Background(), "t_demo", model.RigProfileIn{Name: "itest rig"})
    if err != nil { t.Fatalf("CreateRig: %v", err) }
    defer func(){ _ = p.DeleteRig(context.Background(), "t_demo", r.ID) }()
    got, err := p.GetRig(context.Background(), "t_demo", r.ID)
    if err != nil { t.Fatalf("GetRig: %v", err) }
    if got.Name != "itest rig" || len(got.Slots) != 9 { t.Fatalf("unexpected profile: %+v", got) }
}
