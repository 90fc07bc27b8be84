package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTripsEveryVariant(t *testing.T) {
	results := []Result{
		Created{Kind: KindThread, ID: 42},
		Created{Kind: KindReply, ID: 7},
		RateLimited{Timeleft: 5},
		ParamsInvalid{Fields: map[string][]string{"title": {"this field is required"}}},
		StatusRejected{Status: "locked"},
		SpamRejected{},
		DnsblRejected{},
		BanRejected{},
		InfraFailure{Message: "write conflict retries exhausted"},
	}

	for _, want := range results {
		t.Run(want.Tag(), func(t *testing.T) {
			raw, err := Encode(want)
			require.NoError(t, err)

			got, err := Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestEncode_WireShape(t *testing.T) {
	raw, err := Encode(StatusRejected{Status: "archived"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tag":"status_rejected","data":{"status":"archived"}}`, string(raw))

	_, err = Encode(nil)
	assert.ErrorIs(t, err, ErrMalformedResult)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `["failure","spam_rejected"]x`},
		{name: "unknown tag", raw: `{"tag":"exploded"}`},
		{name: "missing tag", raw: `{}`},
		{name: "bad data", raw: `{"tag":"rate_limited","data":{"timeleft":"soon"}}`},
		{name: "created without id", raw: `{"tag":"created","data":{"kind":"thread"}}`},
		{name: "created with unknown kind", raw: `{"tag":"created","data":{"kind":"board","id":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Decode([]byte(tt.raw))
			assert.ErrorIs(t, err, ErrMalformedResult)
			assert.Nil(t, r)
		})
	}
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusSuccess, StatusOf(Created{Kind: KindThread, ID: 1}))
	assert.Equal(t, StatusFailure, StatusOf(SpamRejected{}))
	assert.Equal(t, StatusFailure, StatusOf(InfraFailure{}))

	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusFailure.Terminal())
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusPending.Terminal())
}
