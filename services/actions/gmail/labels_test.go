package gmail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFolderToLabelID(t *testing.T) {
	assert.Equal(t, "INBOX", folderToLabelID("inbox"))
	assert.Equal(t, "INBOX", folderToLabelID("Inbox"))
	assert.Equal(t, "TRASH", folderToLabelID("trash"))
	assert.Equal(t, "SPAM", folderToLabelID("junk"))
	assert.Equal(t, "DRAFT", folderToLabelID("drafts"))

	// user labels pass through untouched
	assert.Equal(t, "Label_12345", folderToLabelID("Label_12345"))
}
