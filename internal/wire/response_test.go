package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse_WithMessage(t *testing.T) {
	t.Parallel()

	resp, err := ParseResponse("200 server ready")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, "server ready", resp.Message)
}

func TestParseResponse_NoMessage(t *testing.T) {
	t.Parallel()

	resp, err := ParseResponse("211")
	require.NoError(t, err)
	assert.Equal(t, 211, resp.Code)
	assert.Equal(t, "", resp.Message)
}

func TestParseResponse_Malformed(t *testing.T) {
	t.Parallel()

	_, err := ParseResponse("xx")
	require.Error(t, err)

	var malformed *ErrMalformedResponse
	require.ErrorAs(t, err, &malformed)

	_, err = ParseResponse("abc some message")
	require.Error(t, err)
}

func TestParseArticleResponseLine(t *testing.T) {
	t.Parallel()

	out := ParseArticleResponseLine("1 <abc@example.com>")
	assert.Equal(t, int64(1), out.Number)
	assert.Equal(t, "<abc@example.com>", out.MessageID)
}

func TestParseArticleResponseLine_MissingFields(t *testing.T) {
	t.Parallel()

	out := ParseArticleResponseLine("")
	assert.Equal(t, int64(0), out.Number)
	assert.Equal(t, "", out.MessageID)
}

func TestParseArticleResponseLine_NonNumericNumber(t *testing.T) {
	t.Parallel()

	out := ParseArticleResponseLine("<abc@example.com>")
	assert.Equal(t, int64(0), out.Number)
	assert.Equal(t, "", out.MessageID)
}

func TestParseGroupResponseLine(t *testing.T) {
	t.Parallel()

	gr, err := ParseGroupResponseLine("12 1 15 alt.binaries.test")
	require.NoError(t, err)
	assert.Equal(t, int64(12), gr.Count)
	assert.Equal(t, int64(1), gr.Low)
	assert.Equal(t, int64(15), gr.High)
	assert.Equal(t, "alt.binaries.test", gr.Name)
}

func TestParseGroupResponseLine_TooFewFields(t *testing.T) {
	t.Parallel()

	_, err := ParseGroupResponseLine("12 1 15")
	require.Error(t, err)

	var malformed *ErrMalformedGroupResponse
	require.ErrorAs(t, err, &malformed)
}

func TestParseGroupResponseLine_NonNumericField(t *testing.T) {
	t.Parallel()

	_, err := ParseGroupResponseLine("abc 1 15 alt.binaries.test")
	require.Error(t, err)
}
