package models

import (
	"testing"

	"live-app/internal/apperrors"

	"github.com/stretchr/testify/require"
)

func TestDecodeClientMessage_JoinLive(t *testing.T) {
	req := require.New(t)

	msg, err := DecodeClientMessage([]byte(`{"type":"join_live","userId":"u1","timestamp":1700000000000}`))

	req.NoError(err)
	join, ok := msg.(*JoinLive)
	req.True(ok)
	req.Equal("u1", join.UserID)
	req.Equal(int64(1700000000000), join.Timestamp)
	req.Equal(MessageTypeJoinLive, msg.Kind())
}

func TestDecodeClientMessage_GiftPriceAsString(t *testing.T) {
	req := require.New(t)

	// Given the browser sends the price straight from a data attribute
	msg, err := DecodeClientMessage([]byte(`{"type":"gift","userId":"u1","giftId":"g1","giftName":"rose","giftPrice":"10"}`))

	// Then the price is parsed as an integer
	req.NoError(err)
	gift := msg.(*Gift)
	req.Equal(FlexInt(10), gift.GiftPrice)
}

func TestDecodeClientMessage_GiftPriceAsNumber(t *testing.T) {
	req := require.New(t)

	msg, err := DecodeClientMessage([]byte(`{"type":"gift","userId":"u1","giftId":"g1","giftPrice":25}`))

	req.NoError(err)
	req.Equal(FlexInt(25), msg.(*Gift).GiftPrice)
}

func TestDecodeClientMessage_Invalid(t *testing.T) {
	cases := map[string]string{
		"malformed json":      `{"type":`,
		"missing type":        `{"userId":"u1"}`,
		"unknown type":        `{"type":"dance"}`,
		"missing user":        `{"type":"like"}`,
		"negative price":      `{"type":"gift","userId":"u1","giftId":"g1","giftPrice":-5}`,
		"fractional price":    `{"type":"gift","userId":"u1","giftId":"g1","giftPrice":1.5}`,
		"empty comment":       `{"type":"comment","userId":"u1","content":""}`,
		"invite without to":   `{"type":"invite_pk","from":"a"}`,
		"response no verdict": `{"type":"pk_response","from":"b","to":"a"}`,
		"negative pk score":   `{"type":"pk_score","userId":"u1","score":-1}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeClientMessage([]byte(raw))
			require.ErrorIs(t, err, apperrors.ErrInvalidMessage)
		})
	}
}

func TestDecodeClientMessage_PKResponse(t *testing.T) {
	req := require.New(t)

	msg, err := DecodeClientMessage([]byte(`{"type":"pk_response","from":"b","to":"a","accepted":false}`))

	req.NoError(err)
	resp := msg.(*PKResponse)
	req.NotNil(resp.Accepted)
	req.False(*resp.Accepted)
}

func TestDecodeClientMessage_RelayKeepsPayload(t *testing.T) {
	req := require.New(t)
	raw := []byte(`{"type":"change_song","songId":"s42"}`)

	msg, err := DecodeClientMessage(raw)

	req.NoError(err)
	relay, ok := msg.(*Relay)
	req.True(ok)
	req.Equal(MessageTypeChangeSong, relay.Kind())
	req.JSONEq(string(raw), string(relay.Payload))
}

func TestDecodeClientMessage_RequestStats(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"request_stats"}`))

	require.NoError(t, err)
	require.IsType(t, &RequestStats{}, msg)
}
