package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"integrations-api/internal/model"
)

func (s *Store) CreateCredential(ctx context.Context, c *model.Credential) error {
	key := c.Key
	if len(key) == 0 {
		key = []byte("{}")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO credentials (id, user_id, type, app_id, key) VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.UserID, c.Type, c.AppID, string(key),
	)
	return err
}

// CredentialTypes lists the integration type of every credential the user holds.
func (s *Store) CredentialTypes(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT type FROM credentials WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// CredentialByType returns the user's first credential of the given type.
func (s *Store) CredentialByType(ctx context.Context, userID, typ string) (*model.Credential, error) {
	return s.credential(ctx,
		`SELECT id, user_id, type, app_id, key FROM credentials
		 WHERE user_id = $1 AND type = $2 ORDER BY id LIMIT 1`, userID, typ)
}

// CredentialByID only finds credentials owned by userID.
func (s *Store) CredentialByID(ctx context.Context, userID, id string) (*model.Credential, error) {
	return s.credential(ctx,
		`SELECT id, user_id, type, app_id, key FROM credentials
		 WHERE user_id = $1 AND id = $2`, userID, id)
}

func (s *Store) credential(ctx context.Context, q string, args ...any) (*model.Credential, error) {
	c := &model.Credential{}
	err := s.pool.QueryRow(ctx, q, args...).Scan(&c.ID, &c.UserID, &c.Type, &c.AppID, &c.Key)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCredential removes the credential and, when cascadeApp is set, every
// api key and webhook of the user tagged with that app, in one transaction.
func (s *Store) DeleteCredential(ctx context.Context, userID, id, cascadeApp string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM credentials WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if cascadeApp != "" {
		if _, err := tx.Exec(ctx,
			`DELETE FROM api_keys WHERE user_id = $1 AND app_id = $2`, userID, cascadeApp); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM webhooks WHERE user_id = $1 AND app_id = $2`, userID, cascadeApp); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) CreateApiKey(ctx context.Context, k *model.ApiKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, user_id, app_id, hashed_key, note, expires_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		k.ID, k.UserID, k.AppID, k.HashedKey, k.Note, k.ExpiresAt,
	)
	return err
}

func (s *Store) ApiKeyIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM api_keys WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) CreateWebhook(ctx context.Context, wh *model.Webhook) error {
	triggers := wh.EventTriggers
	if triggers == nil {
		triggers = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO webhooks (id, user_id, app_id, subscriber_url, event_triggers, active)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		wh.ID, wh.UserID, wh.AppID, wh.SubscriberURL, triggers, wh.Active,
	)
	return err
}

func (s *Store) WebhookIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM webhooks WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
