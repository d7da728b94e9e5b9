package database

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/MorseWayne/bp_store/internal/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 3307, User: "bp", Password: "p@ss", DBName: "bp_store"})

	for _, want := range []string{"bp:p@ss@tcp(db:3307)/bp_store", "parseTime=true", "charset=utf8mb4"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN() = %s, missing %s", dsn, want)
		}
	}

	parsed, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN() error = %v", err)
	}
	if parsed.Passwd != "p@ss" || parsed.DBName != "bp_store" {
		t.Errorf("round trip mismatch: %+v", parsed)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	dup := &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"}

	if !IsDuplicateKey(dup) {
		t.Error("1062 should be duplicate key")
	}
	if !IsDuplicateKey(fmt.Errorf("insert: %w", dup)) {
		t.Error("wrapped 1062 should be duplicate key")
	}
	if IsDuplicateKey(&mysqldriver.MySQLError{Number: 1213}) {
		t.Error("deadlock is not duplicate key")
	}
	if IsDuplicateKey(errors.New("boom")) {
		t.Error("plain error is not duplicate key")
	}
}

func TestIsDuplicateKeyOn(t *testing.T) {
	active := &mysqldriver.MySQLError{
		Number:  1062,
		Message: "Duplicate entry '7' for key 'return_requests.uk_return_requests_active_item'",
	}
	number := &mysqldriver.MySQLError{
		Number:  1062,
		Message: "Duplicate entry 'R-1' for key 'return_requests.uk_return_requests_number'",
	}

	if !IsDuplicateKeyOn(fmt.Errorf("insert: %w", active), "uk_return_requests_active_item") {
		t.Error("wrapped conflict on the active item key should match")
	}
	if IsDuplicateKeyOn(number, "uk_return_requests_active_item") {
		t.Error("conflict on another key should not match")
	}
	if IsDuplicateKeyOn(&mysqldriver.MySQLError{Number: 1213, Message: "uk_return_requests_active_item"}, "uk_return_requests_active_item") {
		t.Error("deadlock is not duplicate key")
	}
}
