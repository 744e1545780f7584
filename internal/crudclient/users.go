package crudclient

import (
	"context"
	"fmt"
)

// User mirrors the external CRUD layer's /users resource. Whitelist
// enforcement happens external to the core (spec.md §6); this type
// exists only for lookups the Coordinator's tools need (e.g. resolving
// a Telegram user id to an internal user id).
type User struct {
	InternalUserID string `json:"internal_user_id"`
	TelegramUserID int64  `json:"telegram_user_id"`
	DisplayName    string `json:"display_name"`
}

// GetUserByTelegramID resolves a Telegram user id to the internal user
// record.
func (c *Client) GetUserByTelegramID(ctx context.Context, telegramUserID int64) (*User, error) {
	var u User
	if err := c.do(ctx, "GET", fmt.Sprintf("/users?telegram_user_id=%d", telegramUserID), nil, &u); err != nil {
		return nil, fmt.Errorf("crudclient: get user by telegram id %d: %w", telegramUserID, err)
	}
	return &u, nil
}
