// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"errors"
	"fmt"

	"github.com/danielhkuo/campus-mess/models"
	"github.com/danielhkuo/campus-mess/remote"
)

var (
	ErrUnsupportedVote = errors.New("unsupported vote type")
	ErrInvalidItem     = errors.New("invalid menu item")
)

// Vote is a device's own vote on an item.
type Vote string

const (
	None    Vote = ""
	Like    Vote = "like"
	Dislike Vote = "dislike" // counter exists; no caller casts it
)

// ItemKey identifies one menu item's vote counter.
type ItemKey struct {
	ServiceID string
	Day       string
	Meal      string
	ItemID    string
}

// Path is the counter's location in the remote store.
func (k ItemKey) Path() string {
	return remote.Join("votes", k.ServiceID, k.Day, k.Meal, k.ItemID)
}

// prefKey is where this device remembers its own vote. The day and meal
// are not part of it, so a vote follows the item across the week.
func (k ItemKey) prefKey() string {
	return "vote_" + k.ServiceID + "_" + k.ItemID
}

func (k ItemKey) Validate() error {
	if k.ServiceID == "" || k.ItemID == "" {
		return fmt.Errorf("%w: service and item are required", ErrInvalidItem)
	}
	if !models.IsDayKey(k.Day) {
		return fmt.Errorf("%w: unknown day %q", ErrInvalidItem, k.Day)
	}
	if !models.IsMealKey(k.Meal) {
		return fmt.Errorf("%w: unknown meal %q", ErrInvalidItem, k.Meal)
	}
	if _, err := remote.CleanPath(k.Path()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	return nil
}

// Toggle returns the vote after tapping voteType: tapping the current
// vote clears it, anything else switches to voteType.
func Toggle(current, voteType Vote) Vote {
	if current == voteType {
		return None
	}
	return voteType
}

// ApplyVote moves one vote on rec from prev to next. Counters never go
// below zero.
func ApplyVote(rec models.VoteRecord, prev, next Vote) models.VoteRecord {
	if prev == next {
		return rec
	}
	if next != None {
		adjust(&rec, next, 1)
	}
	if prev != None {
		adjust(&rec, prev, -1)
	}
	return rec
}

func adjust(rec *models.VoteRecord, v Vote, delta int) {
	switch v {
	case Like:
		rec.Likes = max(rec.Likes+delta, 0)
	case Dislike:
		rec.Dislikes = max(rec.Dislikes+delta, 0)
	}
}
