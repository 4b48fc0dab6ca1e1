package gmail

import "strings"

const (
	labelUnread  = "UNREAD"
	labelStarred = "STARRED"
)

// Gmail system labels stand in for the well-known folders; anything else is
// assumed to be a user label id carried through from ingestion.
var systemLabels = map[string]string{
	"inbox":     "INBOX",
	"sent":      "SENT",
	"drafts":    "DRAFT",
	"draft":     "DRAFT",
	"spam":      "SPAM",
	"junk":      "SPAM",
	"trash":     "TRASH",
	"important": "IMPORTANT",
}

func folderToLabelID(folder string) string {
	if label, ok := systemLabels[strings.ToLower(folder)]; ok {
		return label
	}
	return folder
}
