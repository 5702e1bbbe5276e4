package sqlite

import (
	"context"
)

func (c *sqliteClient) IsExempt(ctx context.Context, chatID, userID int64) (bool, error) {
	var count int
	err := c.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM exemptions WHERE chat_id = ? AND user_id = ?
	`, chatID, userID)
	return count > 0, err
}

// GrantExemption is idempotent, re-granting keeps the original grant row.
func (c *sqliteClient) GrantExemption(ctx context.Context, chatID, userID, grantedBy int64) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO exemptions (chat_id, user_id, granted_by, granted_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chat_id, user_id) DO NOTHING
	`, chatID, userID, grantedBy, c.now().UnixNano())
	return err
}

func (c *sqliteClient) RevokeExemption(ctx context.Context, chatID, userID int64) (bool, error) {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM exemptions WHERE chat_id = ? AND user_id = ?
	`, chatID, userID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}
