package gmailclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessage_WithSender(t *testing.T) {
	msg := string(buildMessage("donations@example.org", "asha@example.com", "Thank you", "Body text"))

	assert.Contains(t, msg, "From: donations@example.org\r\n")
	assert.Contains(t, msg, "To: asha@example.com\r\nSubject: Thank you\r\n")
	assert.Contains(t, msg, "charset=\"UTF-8\"\r\n\r\nBody text")
}

func TestBuildMessage_WithoutSender(t *testing.T) {
	msg := string(buildMessage("", "asha@example.com", "Thank you", "Body text"))

	assert.NotContains(t, msg, "From:")
	assert.True(t, len(msg) > 0 && msg[:3] == "To:")
}
