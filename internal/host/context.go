package host

// Context is a snapshot of the host's current chat identity. Either
// CharacterID or GroupID is set for a chat with a subject; both empty means
// nothing is selected.
type Context struct {
	CharacterID string
	GroupID     string
	ChatID      string
	ChatName    string
}

// HasSubject reports whether an individual or group conversation partner
// owns the current chat.
func (c Context) HasSubject() bool {
	return c.CharacterID != "" || c.GroupID != ""
}

// IsGroup reports whether the current chat belongs to a group subject.
func (c Context) IsGroup() bool {
	return c.GroupID != ""
}

// SubjectKey derives the registry key for the current subject. Group wins
// when both identifiers are somehow present. Empty when there is no subject.
func (c Context) SubjectKey() string {
	if c.GroupID != "" {
		return "group_" + c.GroupID
	}
	if c.CharacterID != "" {
		return "char_" + c.CharacterID
	}
	return ""
}

// SubjectName returns the display name used when labeling preview chats.
func (c Context) SubjectName() string {
	if c.ChatName != "" {
		return c.ChatName
	}
	if c.GroupID != "" {
		return "group " + c.GroupID
	}
	if c.CharacterID != "" {
		return "character " + c.CharacterID
	}
	return "chat"
}
