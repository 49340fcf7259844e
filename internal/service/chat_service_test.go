package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fathima-sithara/conversation-service/internal/domain"
	"github.com/fathima-sithara/conversation-service/internal/hub"
	"github.com/fathima-sithara/conversation-service/internal/kafka"
	"github.com/fathima-sithara/conversation-service/internal/media"
	"github.com/fathima-sithara/conversation-service/internal/repository/memory"
	"github.com/fathima-sithara/conversation-service/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSend_CreatesSummaryAndCountsUnread(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	m := f.sendText(t, "u1", "u2", "hi")
	assert.Equal(t, "u1_u2", m.ConversationKey)
	assert.False(t, m.Read)
	assert.Empty(t, m.DeletedFor)

	chat, err := f.store.Chats.Get(ctx, "u1_u2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, chat.Participants)
	assert.Equal(t, m.ID, chat.LastMessage.MessageID)
	assert.Equal(t, "hi", chat.LastMessage.Preview)
	assert.True(t, chat.LastMessageTime.Equal(m.CreatedAt))
	assert.Equal(t, 0, chat.UnreadCount["u1"])
	assert.Equal(t, 1, chat.UnreadCount["u2"])

	f.sendText(t, "u2", "u1", "hey")
	chat, err = f.store.Chats.Get(ctx, "u1_u2")
	require.NoError(t, err)
	assert.Equal(t, 1, chat.UnreadCount["u1"])
	assert.Equal(t, 1, chat.UnreadCount["u2"])
	assert.Equal(t, []string{kafka.EventMessageSent, kafka.EventMessageSent}, f.events.Types())
}

func TestSend_Validation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  SendRequest
	}{
		{"empty text", SendRequest{SenderID: "u1", ReceiverID: "u2", Kind: domain.KindText, Text: "   "}},
		{"self", SendRequest{SenderID: "u1", ReceiverID: "u1", Kind: domain.KindText, Text: "hi"}},
		{"reserved id", SendRequest{SenderID: "u.1", ReceiverID: "u2", Kind: domain.KindText, Text: "hi"}},
		{"unknown kind", SendRequest{SenderID: "u1", ReceiverID: "u2", Kind: "sticker", Text: "hi"}},
		{"media without attachment", SendRequest{SenderID: "u1", ReceiverID: "u2", Kind: domain.KindMedia}},
		{"voice without duration", SendRequest{SenderID: "u1", ReceiverID: "u2", Kind: domain.KindVoice,
			Attachment: &Attachment{Data: []byte("OggS...."), ContentType: "audio/ogg"}}},
		{"story reply without story", SendRequest{SenderID: "u1", ReceiverID: "u2", Kind: domain.KindStoryReply, Text: "nice"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Send(ctx, tc.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	_, err := f.store.Chats.Get(ctx, "u1_u2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSend_MediaUploadsUnderConversationPrefix(t *testing.T) {
	f := newChatFixture(t)

	m, err := f.svc.Send(context.Background(), SendRequest{
		SenderID:   "u2",
		ReceiverID: "u1",
		Kind:       domain.KindMedia,
		Attachment: &Attachment{Data: pngBytes(t, 8, 8), ContentType: "image/png"},
	})
	require.NoError(t, err)
	require.NotNil(t, m.Body.Media)

	ref := m.Body.Media
	assert.Equal(t, domain.MediaImage, ref.Type)
	assert.True(t, strings.HasPrefix(ref.Key, "chat_media/u1_u2/"), ref.Key)
	assert.Equal(t, "http://localhost:8083/media/"+ref.Key, ref.URL)

	_, ct, ok := f.blobs.Get(ref.Key)
	require.True(t, ok)
	assert.Equal(t, "image/png", ct)

	chat, err := f.store.Chats.Get(context.Background(), "u1_u2")
	require.NoError(t, err)
	assert.Equal(t, "Photo", chat.LastMessage.Preview)
}

func TestSend_VoiceNote(t *testing.T) {
	f := newChatFixture(t)

	m, err := f.svc.Send(context.Background(), SendRequest{
		SenderID:   "u1",
		ReceiverID: "u2",
		Kind:       domain.KindVoice,
		Attachment: &Attachment{Data: []byte("fake-ogg-bytes"), ContentType: "audio/ogg"},
		DurationMS: 4200,
	})
	require.NoError(t, err)
	require.NotNil(t, m.Body.Voice)
	assert.Equal(t, int64(4200), m.Body.Voice.DurationMS)
	assert.True(t, strings.HasPrefix(m.Body.Voice.Key, "chat_media/u1_u2/"))
}

func TestSend_UploadFailureWritesNothing(t *testing.T) {
	f := newChatFixture(t)
	f.svc.blobs = failingBlobs{}
	ctx := context.Background()

	_, err := f.svc.Send(ctx, SendRequest{
		SenderID:   "u1",
		ReceiverID: "u2",
		Kind:       domain.KindMedia,
		Attachment: &Attachment{Data: pngBytes(t, 4, 4), ContentType: "image/png"},
	})
	require.ErrorIs(t, err, domain.ErrUploadFailed)

	msgs, err := f.store.Messages.ListByConversation(ctx, "u1_u2")
	require.NoError(t, err)
	assert.Empty(t, msgs)
	_, err = f.store.Chats.Get(ctx, "u1_u2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.events.Types())
}

func TestSend_StoryReply(t *testing.T) {
	f := newChatFixture(t)
	m, err := f.svc.Send(context.Background(), SendRequest{
		SenderID:   "u1",
		ReceiverID: "u2",
		Kind:       domain.KindStoryReply,
		Text:       "great view",
		Story:      &domain.StoryRef{StoryID: "s1", StoryURL: "https://cdn.example.com/s1.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", m.Body.Story.StoryID)
	assert.Equal(t, "great view", m.Body.Text)
}

// u1 and u2 exchange hi, hey and bye, then read and delete in turn.
func TestConversationScenario(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	hi := f.sendText(t, "u1", "u2", "hi")
	hey := f.sendText(t, "u2", "u1", "hey")
	bye := f.sendText(t, "u1", "u2", "bye")

	history, err := f.svc.History(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"bye", "hey", "hi"}, texts(history))

	chat, err := f.store.Chats.Get(ctx, "u1_u2")
	require.NoError(t, err)
	assert.Equal(t, 2, chat.UnreadCount["u2"])
	assert.Equal(t, 1, chat.UnreadCount["u1"])
	assert.Equal(t, bye.ID, chat.LastMessage.MessageID)

	n, err := f.svc.MarkConversationRead(ctx, "u1_u2", "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	chat, err = f.store.Chats.Get(ctx, "u1_u2")
	require.NoError(t, err)
	assert.Equal(t, 0, chat.UnreadCount["u2"])
	assert.Equal(t, 1, chat.UnreadCount["u1"])

	// u1 hides hey; u2 still sees it.
	purged, err := f.svc.DeleteForMe(ctx, hey.ID, "u1")
	require.NoError(t, err)
	assert.False(t, purged)
	history, err = f.svc.History(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"bye", "hi"}, texts(history))
	history, err = f.svc.History(ctx, "u2", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bye", "hey", "hi"}, texts(history))

	// Only the sender may delete for everyone.
	err = f.svc.DeleteForEveryone(ctx, bye.ID, "u2")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Removing the last message points the summary at the newest survivor.
	require.NoError(t, f.svc.DeleteForEveryone(ctx, bye.ID, "u1"))
	chat, err = f.store.Chats.Get(ctx, "u1_u2")
	require.NoError(t, err)
	assert.Equal(t, hey.ID, chat.LastMessage.MessageID)
	assert.True(t, chat.LastMessageTime.Equal(hey.CreatedAt))

	require.NoError(t, f.svc.DeleteForEveryone(ctx, hey.ID, "u2"))
	require.NoError(t, f.svc.DeleteForEveryone(ctx, hi.ID, "u1"))

	chat, err = f.store.Chats.Get(ctx, "u1_u2")
	require.NoError(t, err)
	assert.True(t, chat.LastMessage.IsEmpty())
	assert.Equal(t, "", chat.LastMessage.Preview)
	assert.True(t, chat.LastMessageTime.After(bye.CreatedAt))

	history, err = f.svc.History(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDeleteForMe_PurgesWhenBothSidesDeleted(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	first := f.sendText(t, "u1", "u2", "first")
	last := f.sendText(t, "u1", "u2", "last")

	purged, err := f.svc.DeleteForMe(ctx, last.ID, "u1")
	require.NoError(t, err)
	assert.False(t, purged)

	// A tombstone alone leaves the summary untouched.
	chat, err := f.store.Chats.Get(ctx, "u1_u2")
	require.NoError(t, err)
	assert.Equal(t, last.ID, chat.LastMessage.MessageID)

	purged, err = f.svc.DeleteForMe(ctx, last.ID, "u2")
	require.NoError(t, err)
	assert.True(t, purged)

	_, err = f.store.Messages.GetByID(ctx, last.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chat, err = f.store.Chats.Get(ctx, "u1_u2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, chat.LastMessage.MessageID)
}

func TestDeleteForMe_OlderMessageKeepsSummary(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	old := f.sendText(t, "u1", "u2", "old")
	latest := f.sendText(t, "u2", "u1", "new")

	_, err := f.svc.DeleteForMe(ctx, old.ID, "u1")
	require.NoError(t, err)
	purged, err := f.svc.DeleteForMe(ctx, old.ID, "u2")
	require.NoError(t, err)
	assert.True(t, purged)

	chat, err := f.store.Chats.Get(ctx, "u1_u2")
	require.NoError(t, err)
	assert.Equal(t, latest.ID, chat.LastMessage.MessageID)
	assert.True(t, chat.LastMessageTime.Equal(latest.CreatedAt))
}

func TestDelete_Errors(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	m := f.sendText(t, "u1", "u2", "hi")

	_, err := f.svc.DeleteForMe(ctx, "missing", "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.DeleteForMe(ctx, m.ID, "u3")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteForEveryone(ctx, "missing", "u1"), domain.ErrNotFound)

	// Everyone-delete works regardless of earlier tombstones.
	_, err = f.svc.DeleteForMe(ctx, m.ID, "u1")
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteForEveryone(ctx, m.ID, "u1"))
	_, err = f.store.Messages.GetByID(ctx, m.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type countingMessages struct {
	*memory.MessageRepository
	markRead atomic.Int32
}

func (c *countingMessages) MarkRead(ctx context.Context, key, readerID string) (int64, error) {
	c.markRead.Add(1)
	return c.MessageRepository.MarkRead(ctx, key, readerID)
}

type countingChats struct {
	*memory.ChatRepository
	resets atomic.Int32
}

func (c *countingChats) ResetUnread(ctx context.Context, key, userID string) error {
	c.resets.Add(1)
	return c.ChatRepository.ResetUnread(ctx, key, userID)
}

func TestMarkConversationRead_NoUnreadIsNoop(t *testing.T) {
	store := memory.New()
	msgs := &countingMessages{MessageRepository: store.Messages}
	chats := &countingChats{ChatRepository: store.Chats}
	logger := zap.NewNop().Sugar()
	h := hub.New(store.Messages.ListByConversation, logger)
	defer h.Close()
	svc := NewChatService(ChatDeps{
		Messages: msgs,
		Chats:    chats,
		Tx:       store,
		Blobs:    failingBlobs{},
		Media:    media.NewProcessor(1280, 85, 1<<20),
		Hub:      h,
		Clock:    utils.NewClock(),
		Logger:   logger,
	})
	ctx := context.Background()

	_, err := svc.Send(ctx, SendRequest{SenderID: "u1", ReceiverID: "u2", Kind: domain.KindText, Text: "hi"})
	require.NoError(t, err)

	// The sender has nothing unread.
	n, err := svc.MarkConversationRead(ctx, "u1_u2", "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, msgs.markRead.Load())
	assert.Zero(t, chats.resets.Load())

	n, err = svc.MarkConversationRead(ctx, "u1_u2", "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = svc.MarkConversationRead(ctx, "u1_u2", "u2")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, int32(1), msgs.markRead.Load())
	assert.Equal(t, int32(1), chats.resets.Load())

	_, err = svc.MarkConversationRead(ctx, "u1_u2", "u3")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.MarkConversationRead(ctx, "garbage", "u1")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSubscribe_DeliversFilteredSnapshots(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	var c collector
	cancel, err := f.svc.Subscribe(ctx, "u1", "u2", c.onUpdate)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return c.Calls() >= 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, c.Texts())

	f.sendText(t, "u1", "u2", "hi")
	hey := f.sendText(t, "u2", "u1", "hey")
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"hey", "hi"}, c.Texts())
	}, time.Second, 5*time.Millisecond)

	_, err = f.svc.DeleteForMe(ctx, hey.ID, "u1")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"hi"}, c.Texts())
	}, time.Second, 5*time.Millisecond)

	cancel()
	cancel()
	assert.Equal(t, 0, f.hub.Count("u1_u2"))

	calls := c.Calls()
	f.sendText(t, "u1", "u2", "after")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, c.Calls())
}

func TestSubscribe_RejectsInvalidPair(t *testing.T) {
	f := newChatFixture(t)
	_, err := f.svc.Subscribe(context.Background(), "u1", "u1", func([]*domain.Message) {})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestOnRemoteEvent_RefreshesSubscribers(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	var c collector
	cancel, err := f.svc.Subscribe(ctx, "u1", "u2", c.onUpdate)
	require.NoError(t, err)
	defer cancel()
	assert.Eventually(t, func() bool { return c.Calls() >= 1 }, time.Second, 5*time.Millisecond)

	// Simulate a write made by another instance straight into the store.
	m := &domain.Message{ID: "remote-1", ConversationKey: "u1_u2", SenderID: "u2", ReceiverID: "u1",
		Body: domain.TextBody("from afar"), CreatedAt: testEpoch}
	require.NoError(t, f.store.Messages.Insert(ctx, m))

	f.svc.OnRemoteEvent(ctx, kafka.Event{Type: kafka.EventMessageSent, ConversationKey: "u1_u2"})
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"from afar"}, c.Texts())
	}, time.Second, 5*time.Millisecond)
}

func TestListAndHideChats(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	f.sendText(t, "u1", "u2", "to u2")
	f.sendText(t, "u3", "u1", "from u3")

	chats, err := f.svc.ListChats(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "u1_u3", chats[0].Key)
	assert.Equal(t, "u3", chats[0].Peer("u1"))

	require.NoError(t, f.svc.HideChat(ctx, "u1", "u3"))
	chats, err = f.svc.ListChats(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "u1_u2", chats[0].Key)

	// A new message brings the conversation back.
	f.sendText(t, "u3", "u1", "again")
	chats, err = f.svc.ListChats(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, chats, 2)

	assert.ErrorIs(t, f.svc.HideChat(ctx, "u1", "u9"), domain.ErrNotFound)
}

func TestGetMessage(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	m := f.sendText(t, "u1", "u2", "hi")

	got, err := f.svc.GetMessage(ctx, m.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Body.Text)

	_, err = f.svc.GetMessage(ctx, m.ID, "u3")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.DeleteForMe(ctx, m.ID, "u2")
	require.NoError(t, err)
	_, err = f.svc.GetMessage(ctx, m.ID, "u2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
