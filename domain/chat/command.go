package chat

type Command interface {
	Group() GroupID
}

type PostMessageCommand struct {
	GroupID       GroupID
	UserID        UserID
	Content       string
	CorrelationID string
}

func (p PostMessageCommand) Group() GroupID {
	return p.GroupID
}

type GetMessageCommand struct {
	GroupID GroupID
	UserID  UserID
	Limit   int
}

func (p GetMessageCommand) Group() GroupID {
	return p.GroupID
}

type CreateGroupCommand struct {
	OwnerID UserID
	Name    string
}

type AddMemberCommand struct {
	GroupID GroupID
	ActorID UserID
	UserID  UserID
	Role    Role
}

func (a AddMemberCommand) Group() GroupID {
	return a.GroupID
}
