package enum

// MailAction is the provider-agnostic vocabulary of user-initiated
// mailbox mutations.
type MailAction string

const (
	ActionDelete     MailAction = "delete"
	ActionMove       MailAction = "move"
	ActionMarkRead   MailAction = "mark_read"
	ActionMarkUnread MailAction = "mark_unread"
	ActionFlag       MailAction = "flag"
	ActionUnflag     MailAction = "unflag"
)

func (t MailAction) String() string {
	return string(t)
}

func (t MailAction) IsValid() bool {
	switch t {
	case ActionDelete, ActionMove, ActionMarkRead, ActionMarkUnread, ActionFlag, ActionUnflag:
		return true
	}
	return false
}
