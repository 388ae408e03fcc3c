// Package credentials stores per-user VK publishing credentials keyed by
// Telegram user id.
package credentials

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidGroupIDs is returned when a group list cannot be parsed as a whole.
	ErrInvalidGroupIDs = errors.New("credentials: invalid group id list")
	// ErrInvalidStoriesID is returned when a stories target is not a single integer.
	ErrInvalidStoriesID = errors.New("credentials: invalid stories group id")
	// ErrEmptyToken is returned by Set when the token is blank.
	ErrEmptyToken = errors.New("credentials: empty access token")
)

// Credential is the effective publishing configuration of one user.
type Credential struct {
	UserID   int64
	Token    string
	GroupIDs []int64
	// StoriesGroupID is the explicit stories target or, when none was
	// stored, the first group at read time.
	StoriesGroupID  int64
	StoriesExplicit bool
	UpdatedAt       time.Time
}

// Input is a full replacement record for Store.Set.
type Input struct {
	UserID   int64
	Token    string
	GroupIDs []int64
	// StoriesGroupID is nil when the user skipped the stories target.
	StoriesGroupID *int64
}

// Store is the credential gateway.
type Store interface {
	Get(ctx context.Context, userID int64) (Credential, bool, error)
	Set(ctx context.Context, in Input) error
}

// Validate checks the invariants of a record before it is stored.
func (in Input) Validate() error {
	if strings.TrimSpace(in.Token) == "" {
		return ErrEmptyToken
	}
	if len(in.GroupIDs) == 0 {
		return ErrInvalidGroupIDs
	}
	return nil
}

// resolve builds the effective credential, defaulting the stories target
// to the first group.
func resolve(userID int64, token string, groups []int64, stories *int64, updatedAt time.Time) Credential {
	cred := Credential{
		UserID:    userID,
		Token:     token,
		GroupIDs:  groups,
		UpdatedAt: updatedAt,
	}
	switch {
	case stories != nil:
		cred.StoriesGroupID = *stories
		cred.StoriesExplicit = true
	case len(groups) > 0:
		cred.StoriesGroupID = groups[0]
	}
	return cred
}

// ParseGroupIDs parses a comma-separated list of community ids. Positive
// values are negated since VK addresses communities with negative owner ids.
// Empty segments are skipped; any other malformed segment or an empty
// result rejects the whole input. Zero passes through unchanged.
func ParseGroupIDs(text string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, ErrInvalidGroupIDs
		}
		ids = append(ids, normalizeGroupID(n))
	}
	if len(ids) == 0 {
		return nil, ErrInvalidGroupIDs
	}
	return ids, nil
}

// ParseStoriesID parses a single community id for stories.
func ParseStoriesID(text string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, ErrInvalidStoriesID
	}
	return normalizeGroupID(n), nil
}

func normalizeGroupID(n int64) int64 {
	if n > 0 {
		return -n
	}
	return n
}

// JoinGroupIDs renders ids the way they are persisted.
func JoinGroupIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// SplitGroupIDs parses the persisted representation. Unlike ParseGroupIDs
// it does not renormalise signs.
func SplitGroupIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, n)
	}
	return ids, nil
}
