package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactBodyLeavesCleanBodiesAlone(t *testing.T) {
	body := `{"error": {"message": "quota exceeded",   "type": "insufficient_quota"}}`
	assert.Equal(t, body, redactBody([]byte(body), "sk-live-123456"))
	assert.Equal(t, "<html>bad gateway</html>", redactBody([]byte("<html>bad gateway</html>"), "sk-live-123456"))
}

func TestRedactBodyMasksSecret(t *testing.T) {
	got := redactBody([]byte("proxy echoed Bearer sk-live-123"), "sk-live-123")
	assert.Equal(t, "proxy echoed Bearer "+redacted, got)
}

func TestRedactBodyKeepsShortSecrets(t *testing.T) {
	assert.Equal(t, "a key was rejected", redactBody([]byte("a key was rejected"), "k"))
	assert.Equal(t, "DEBUG output", redactBody([]byte("DEBUG output"), DisabledCredential))
}

func TestRedactBodyMasksSensitiveFields(t *testing.T) {
	body := `{"request":{"headers":{"Authorization":"Bearer abc"},"items":[{"token":"t1"}]},"ok":false}`
	want := `{"request":{"headers":{"Authorization":"***REDACTED***"},"items":[{"token":"***REDACTED***"}]},"ok":false}`
	assert.Equal(t, want, redactBody([]byte(body), ""))
}

func TestRedactBodyPreservesOtherBytes(t *testing.T) {
	body := `{"z":1,"error":{"message":"a <b> & c","token":"t"}}`
	want := `{"z":1,"error":{"message":"a <b> & c","token":"***REDACTED***"}}`
	assert.Equal(t, want, redactBody([]byte(body), ""))
}

func TestRedactBodyMasksNestedAndSpacedValues(t *testing.T) {
	body := "{\n  \"secret\" :  {\"a\": [1, 2]},\n  \"password\": 42,\n  \"keep\": \"x\"\n}"
	want := "{\n  \"secret\" :  \"***REDACTED***\",\n  \"password\": \"***REDACTED***\",\n  \"keep\": \"x\"\n}"
	assert.Equal(t, want, redactBody([]byte(body), ""))
}

func TestRedactBodySkipsAlreadyRedacted(t *testing.T) {
	body := `{"token": "***REDACTED***"}`
	assert.Equal(t, body, redactBody([]byte(body), ""))
}
