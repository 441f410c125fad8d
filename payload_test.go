package oceanpost

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validBottle() *BottlePayload {
	return &BottlePayload{
		Kind:          KindBottle,
		Text:          "a message set adrift",
		AuthorID:      "0x1111111111111111111111111111111111111111",
		CreatedAtUnix: 1724700000,
		CreatedAtISO:  "2024-08-26T19:20:00Z",
		LikeCount:     3,
		CommentCount:  1,
	}
}

func validComment() *CommentPayload {
	return &CommentPayload{
		Kind:           KindComment,
		Text:           "found it on the shore",
		AuthorID:       "0x2222222222222222222222222222222222222222",
		CreatedAtUnix:  1724700600,
		CreatedAtISO:   "2024-08-26T19:30:00Z",
		ParentEntityID: 7,
	}
}

func TestParsePayloadBottle(t *testing.T) {
	data, err := EncodePayload(validBottle())
	require.NoError(t, err)

	p, err := ParsePayload(data)
	require.NoError(t, err)

	bottle, ok := p.(*BottlePayload)
	require.True(t, ok)
	require.Equal(t, KindBottle, bottle.PayloadKind())
	require.Equal(t, int64(3), bottle.LikeCount)
	require.Equal(t, int64(1), bottle.CommentCount)
}

func TestParsePayloadComment(t *testing.T) {
	data, err := EncodePayload(validComment())
	require.NoError(t, err)

	p, err := ParsePayload(data)
	require.NoError(t, err)

	comment, ok := p.(*CommentPayload)
	require.True(t, ok)
	require.Equal(t, uint64(7), comment.ParentEntityID)
}

func TestParsePayloadRejectsUnknownKind(t *testing.T) {
	_, err := ParsePayload([]byte(`{"kind":"postcard","text":"hi"}`))
	require.ErrorIs(t, err, ErrParse)
}

func TestParsePayloadRejectsInvalidJSON(t *testing.T) {
	_, err := ParsePayload([]byte(`{"kind":`))
	require.ErrorIs(t, err, ErrParse)
}

func TestParsePayloadRejectsWrongFieldType(t *testing.T) {
	_, err := ParsePayload([]byte(`{"kind":"bottle","text":"x","authorId":"a","createdAtUnix":"soon","createdAtISO":"now","likeCount":0,"commentCount":0}`))
	require.ErrorIs(t, err, ErrParse)
}

func TestParsePayloadRejectsNegativeCounts(t *testing.T) {
	_, err := ParsePayload([]byte(`{"kind":"bottle","text":"x","authorId":"a","createdAtUnix":1,"createdAtISO":"now","likeCount":-1,"commentCount":0}`))
	require.ErrorIs(t, err, ErrParse)
}

func TestParsePayloadRejectsCommentWithoutParent(t *testing.T) {
	c := validComment()
	c.ParentEntityID = 0
	data := []byte(`{"kind":"comment","text":"x","authorId":"a","createdAtUnix":1,"createdAtISO":"now","parentEntityId":0}`)
	_, err := ParsePayload(data)
	require.ErrorIs(t, err, ErrParse)
	require.ErrorIs(t, c.Validate(), ErrParse)
}

func TestEncodePayloadRefusesInvalid(t *testing.T) {
	b := validBottle()
	b.Text = ""
	_, err := EncodePayload(b)
	require.ErrorIs(t, err, ErrParse)
}

func TestContentHash(t *testing.T) {
	var zero ContentHash
	require.True(t, zero.IsZero())
	require.False(t, zero.Valid())

	h := ContentHash("QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG")
	require.False(t, h.IsZero())
	require.True(t, h.Valid())
	require.Len(t, []rune(h.ShortString()), 13)

	require.False(t, ContentHash("has space").Valid())
	require.False(t, ContentHash("has/slash").Valid())
}
