package models

// Member is a snapshot of one chat-group member.
type Member struct {
	ID       string
	Tag      string
	Username string
	Roles    map[string]struct{}
}

func (m *Member) HasRole(roleID string) bool {
	_, ok := m.Roles[roleID]
	return ok
}

func NewMember(id, tag, username string, roles ...string) Member {
	set := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return Member{ID: id, Tag: tag, Username: username, Roles: set}
}
