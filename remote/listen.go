// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package remote

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
)

const notifyChannel = "remote_changes"

// Listen relays changes committed by other processes sharing the same
// postgres database to this store's subscribers. It blocks until ctx is
// done. Changes made through this store are already published locally
// and are skipped.
func (s *SQLStore) Listen(ctx context.Context, dsn string) error {
	if !s.postgres {
		return fmt.Errorf("listen requires postgres")
	}

	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("change listener event", "event", ev, "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(notifyChannel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", notifyChannel, err)
	}
	slog.Info("listening for remote changes", "channel", notifyChannel)

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				// Connection was re-established; changes may have been missed.
				s.publishAll(ctx)
				continue
			}
			origin, path, ok := strings.Cut(n.Extra, " ")
			if !ok || origin == s.instance {
				continue
			}
			s.publish(ctx, []string{path})
		case <-time.After(90 * time.Second):
			go listener.Ping()
		}
	}
}

func (s *SQLStore) publishAll(ctx context.Context) {
	s.hub.mu.RLock()
	subs := make([]*subscription, 0, len(s.hub.subs))
	for _, sub := range s.hub.subs {
		subs = append(subs, sub)
	}
	s.hub.mu.RUnlock()

	for _, sub := range subs {
		s.deliver(ctx, sub)
	}
}
