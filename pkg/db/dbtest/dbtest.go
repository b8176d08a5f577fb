// Package dbtest opens throwaway SQLite databases carrying the application schema.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/berryevents69/Berry-Events-sub000/pkg/db"
)

// Open returns a client backed by a private in-memory database. The pool is
// pinned to a single connection, so code under test must route every query
// inside a transaction through the transaction handle.
func Open(t testing.TB) *db.Client {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_foreign_keys=1", name, uuid.NewString()[:8])

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v\n%s", err, stmt)
		}
	}
	return db.FromConn(conn)
}

var schema = []string{
	`CREATE TABLE providers (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  display_name TEXT NOT NULL,
  rating NUMERIC NOT NULL DEFAULT 0 CHECK (rating >= 0 AND rating <= 5),
  verified INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE provider_services (
  provider_id TEXT NOT NULL,
  service_type TEXT NOT NULL,
  created_at DATETIME,
  PRIMARY KEY (provider_id, service_type)
);`,
	`CREATE TABLE provider_locations (
  provider_id TEXT PRIMARY KEY,
  latitude REAL NOT NULL,
  longitude REAL NOT NULL,
  is_online INTEGER NOT NULL DEFAULT 0,
  last_seen DATETIME NOT NULL
);`,
	`CREATE TABLE bookings (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  service_type TEXT NOT NULL,
  latitude REAL NOT NULL,
  longitude REAL NOT NULL,
  provider_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  scheduled_for DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE job_queue (
  id TEXT PRIMARY KEY,
  booking_id TEXT NOT NULL UNIQUE,
  service_type TEXT NOT NULL,
  customer_latitude REAL NOT NULL,
  customer_longitude REAL NOT NULL,
  max_radius_km REAL NOT NULL DEFAULT 20,
  priority INTEGER NOT NULL DEFAULT 3 CHECK (priority BETWEEN 1 AND 5),
  status TEXT NOT NULL DEFAULT 'pending',
  assigned_provider_id TEXT,
  assigned_at DATETIME,
  created_at DATETIME NOT NULL,
  expires_at DATETIME NOT NULL
);`,
	`CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  guest_session_token TEXT,
  status TEXT NOT NULL DEFAULT 'active',
  expires_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  CHECK ((user_id IS NULL) <> (guest_session_token IS NULL))
);`,
	`CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  service_id TEXT NOT NULL,
  service_type TEXT NOT NULL,
  category TEXT NOT NULL,
  service_details TEXT,
  scheduled_for DATETIME,
  base_price NUMERIC NOT NULL,
  add_ons_price NUMERIC NOT NULL DEFAULT 0,
  subtotal NUMERIC NOT NULL,
  tip NUMERIC,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE gate_codes (
  id TEXT PRIMARY KEY,
  reference_id TEXT NOT NULL,
  ciphertext TEXT NOT NULL,
  iv TEXT NOT NULL,
  auth_tag TEXT NOT NULL,
  created_by TEXT,
  accessed_at DATETIME,
  accessed_by TEXT,
  deleted_at DATETIME,
  created_at DATETIME
);`,
	`CREATE UNIQUE INDEX ux_gate_codes_active_reference ON gate_codes (reference_id) WHERE deleted_at IS NULL;`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT,
  guest_session_token TEXT,
  cart_id TEXT,
  subtotal NUMERIC NOT NULL,
  tips_total NUMERIC NOT NULL DEFAULT 0,
  platform_fee NUMERIC NOT NULL,
  total NUMERIC NOT NULL,
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  status TEXT NOT NULL DEFAULT 'pending_payment',
  payment_reference TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  source_cart_item_id TEXT,
  service_id TEXT NOT NULL,
  service_type TEXT NOT NULL,
  category TEXT NOT NULL,
  service_details TEXT,
  scheduled_for DATETIME,
  base_price NUMERIC NOT NULL,
  add_ons_price NUMERIC NOT NULL DEFAULT 0,
  subtotal NUMERIC NOT NULL,
  tip NUMERIC,
  created_at DATETIME
);`,
	`CREATE TABLE wallets (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  balance NUMERIC NOT NULL DEFAULT 0 CHECK (balance >= 0),
  currency TEXT NOT NULL DEFAULT 'ZAR',
  auto_reload_enabled INTEGER NOT NULL DEFAULT 0,
  auto_reload_threshold NUMERIC,
  auto_reload_amount NUMERIC,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE wallet_transactions (
  id TEXT PRIMARY KEY,
  wallet_id TEXT NOT NULL REFERENCES wallets(id),
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  status TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  balance_before NUMERIC NOT NULL,
  balance_after NUMERIC NOT NULL,
  description TEXT,
  booking_id TEXT,
  order_id TEXT,
  service_id TEXT,
  payment_intent_id TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
}
