package cloud

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/warp/calltracker/earnings"
	"github.com/warp/calltracker/generic"
)

// =============================================================================
// NICKNAMES
// =============================================================================

const (
	MinNicknameLen = 2
	MaxNicknameLen = 20
)

var nicknamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// NormalizeNickname trims and lower-cases s and checks it is 2-20
// characters of [a-z0-9_].
func NormalizeNickname(s string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	switch {
	case n == "":
		return "", &generic.ValidationError{Field: "nickname", Value: s, Reason: "must not be empty"}
	case len(n) < MinNicknameLen || len(n) > MaxNicknameLen:
		return "", &generic.ValidationError{Field: "nickname", Value: s, Reason: "must be 2-20 characters"}
	case !nicknamePattern.MatchString(n):
		return "", &generic.ValidationError{Field: "nickname", Value: s, Reason: "only lowercase letters, numbers and underscores"}
	}
	return n, nil
}

// UserDoc is the users/{nickname} document.
type UserDoc struct {
	Nickname    string `json:"nickname"`
	OwnerUID    string `json:"ownerUid"`
	AvatarColor string `json:"avatarColor,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// ClaimNickname makes candidate the caller's nickname and returns its
// canonical form. When current is set the user document and every daily
// record are moved from current to the new name. A name held by another
// identity fails with *generic.NameConflictError.
func (c *Client) ClaimNickname(ctx context.Context, current, candidate string) (string, error) {
	nick, err := NormalizeNickname(candidate)
	if err != nil {
		return "", err
	}
	current = strings.ToLower(strings.TrimSpace(current))
	if nick == current {
		return nick, nil
	}

	id, err := c.authenticate(ctx)
	if err != nil {
		return "", err
	}

	owner, err := c.getUser(ctx, nick)
	if err != nil {
		return "", err
	}
	if owner != nil && owner.OwnerUID != id.UID {
		return "", &generic.NameConflictError{Nickname: generic.Nickname(nick)}
	}

	doc := UserDoc{
		Nickname:    nick,
		OwnerUID:    id.UID,
		AvatarColor: earnings.AvatarColor(nick),
		CreatedAt:   c.Clock.Now().UTC().Format(time.RFC3339),
	}

	if current == "" {
		if err := c.put(ctx, generic.CollectionUsers, nick, doc); err != nil {
			return "", err
		}
		c.Log.Info("nickname claimed", "nickname", nick)
		return nick, nil
	}

	if err := c.migrate(ctx, current, doc); err != nil {
		return "", err
	}
	return nick, nil
}

// migrate moves the user document and daily history from old to the new
// document's nickname. Each record is written under its new key before
// the old key is deleted, so a failure part-way leaves duplicates rather
// than gaps.
func (c *Client) migrate(ctx context.Context, old string, doc UserDoc) error {
	prev, err := c.getUser(ctx, old)
	if err != nil {
		return err
	}
	if prev != nil && prev.CreatedAt != "" {
		doc.CreatedAt = prev.CreatedAt
	}
	if err := c.put(ctx, generic.CollectionUsers, doc.Nickname, doc); err != nil {
		return err
	}
	if err := c.delete(ctx, generic.CollectionUsers, old); err != nil {
		return err
	}

	docs, err := c.Store.QueryEqual(ctx, generic.CollectionDailyLogs, "nickname", old)
	if err != nil {
		return &generic.RemoteError{Op: "query", Collection: generic.CollectionDailyLogs, Err: err}
	}

	moved := 0
	for _, d := range docs {
		rec, err := earnings.FromDocument(d)
		if err != nil {
			c.Log.Warn("skipping unreadable record during rename", "key", d.Key, "error", err)
			continue
		}
		rec.Nickname = doc.Nickname
		if err := c.putRecord(ctx, rec); err != nil {
			return err
		}
		if d.Key != rec.Key() {
			if err := c.delete(ctx, generic.CollectionDailyLogs, d.Key); err != nil {
				return err
			}
		}
		moved++
	}

	c.Log.Info("nickname changed", "from", old, "to", doc.Nickname, "records", moved)
	return nil
}

func (c *Client) getUser(ctx context.Context, nick string) (*UserDoc, error) {
	d, err := c.Store.Get(ctx, generic.CollectionUsers, nick)
	if err != nil {
		return nil, &generic.RemoteError{Op: "get", Collection: generic.CollectionUsers, Key: nick, Err: err}
	}
	if d == nil {
		return nil, nil
	}
	var u UserDoc
	if err := d.Decode(&u); err != nil {
		return nil, &generic.RemoteError{Op: "get", Collection: generic.CollectionUsers, Key: nick, Err: err}
	}
	return &u, nil
}
