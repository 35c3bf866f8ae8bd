// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var ErrNoDevice = errors.New("device id required")

// Store is a flat string key/value store.
type Store interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Durable persists preferences per device in the preference table.
type Durable struct {
	db     *sql.DB
	device string
}

var _ Store = (*Durable)(nil)

func NewDurable(db *sql.DB, deviceUUID string) (*Durable, error) {
	if deviceUUID == "" {
		return nil, ErrNoDevice
	}
	return &Durable{db: db, device: deviceUUID}, nil
}

func (d *Durable) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := d.db.QueryRowContext(ctx, `
		SELECT value FROM preference WHERE device_uuid = $1 AND key = $2
	`, d.device, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return value, true, nil
}

func (d *Durable) SetItem(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO preference (device_uuid, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (device_uuid, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, d.device, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}

func (d *Durable) RemoveItem(ctx context.Context, key string) error {
	_, err := d.db.ExecContext(ctx, `
		DELETE FROM preference WHERE device_uuid = $1 AND key = $2
	`, d.device, key)
	if err != nil {
		return fmt.Errorf("failed to remove preference %s: %w", key, err)
	}
	return nil
}

// Items returns every preference whose key starts with prefix.
func (d *Durable) Items(ctx context.Context, prefix string) (map[string]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT key, value FROM preference WHERE device_uuid = $1 ORDER BY key
	`, d.device)
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	defer rows.Close()

	items := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		if strings.HasPrefix(key, prefix) {
			items[key] = value
		}
	}
	return items, rows.Err()
}

// DeviceSeen returns when a device was first and last seen.
func DeviceSeen(ctx context.Context, db *sql.DB, deviceUUID string) (created, lastSeen time.Time, err error) {
	err = db.QueryRowContext(ctx, `
		SELECT created_at, last_seen_at FROM device WHERE device_uuid = $1
	`, deviceUUID).Scan(&created, &lastSeen)
	if err == sql.ErrNoRows {
		return created, lastSeen, ErrNoDevice
	}
	return created, lastSeen, err
}

// TouchDevice records that a device called the API.
func TouchDevice(ctx context.Context, db *sql.DB, deviceUUID string) error {
	if deviceUUID == "" {
		return ErrNoDevice
	}
	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO device (device_uuid, created_at, last_seen_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (device_uuid) DO UPDATE SET last_seen_at = excluded.last_seen_at
	`, deviceUUID, now, now)
	if err != nil {
		return fmt.Errorf("failed to record device: %w", err)
	}
	return nil
}

// Ephemeral keeps preferences in memory for the lifetime of one session.
type Ephemeral struct {
	mu    sync.RWMutex
	items map[string]string
}

var _ Store = (*Ephemeral)(nil)

func NewEphemeral() *Ephemeral {
	return &Ephemeral{items: make(map[string]string)}
}

func (e *Ephemeral) GetItem(_ context.Context, key string) (string, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.items[key]
	return v, ok, nil
}

func (e *Ephemeral) SetItem(_ context.Context, key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items[key] = value
	return nil
}

func (e *Ephemeral) RemoveItem(_ context.Context, key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.items, key)
	return nil
}

// Clear drops every item, as closing the tab would.
func (e *Ephemeral) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.items)
}
