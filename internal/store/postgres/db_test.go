package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestOpenRejectsMalformedURL(t *testing.T) {
	for _, url := range []string{"postgres://user:pa ss@%zz/db", "host=localhost port=notaport"} {
		db, err := Open(context.Background(), url, PoolConfig{})
		if err == nil {
			_ = Close(db)
			t.Fatalf("Open(%q) succeeded", url)
		}
	}
}

func TestPoolConfigApply(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqlDB.Close()

	PoolConfig{MaxOpenConns: 7, MaxIdleConns: 3, ConnMaxLifetime: time.Minute}.apply(sqlDB)
	if got := sqlDB.Stats().MaxOpenConnections; got != 7 {
		t.Fatalf("MaxOpenConnections = %d, want 7", got)
	}

	PoolConfig{}.apply(sqlDB)
	if got := sqlDB.Stats().MaxOpenConnections; got != 7 {
		t.Fatalf("zero config changed MaxOpenConnections to %d", got)
	}
}

func TestCloseNil(t *testing.T) {
	if err := Close(nil); err != nil {
		t.Fatalf("Close(nil) = %v", err)
	}
}
