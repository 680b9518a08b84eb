package postgres

import (
	"context"
	"fmt"

	"dataset-notifier/internal/models"
)

const groupMembersQuery = `
	SELECT u.uid, u.username, COALESCE(u.first_name, ''), COALESCE(u.last_name, ''), COALESCE(u.email, '')
	FROM user_group_members m
	JOIN users u ON u.uid = m.user_id
	WHERE m.group_id = $1 AND u.disabled = false
	ORDER BY u.username`

// GroupMembers lists the enabled users of a user group.
func (s *Store) GroupMembers(ctx context.Context, groupID string) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, groupMembersQuery, groupID)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
