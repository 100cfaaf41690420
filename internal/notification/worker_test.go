package notification

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/model"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

type fakeSubs struct {
	mu      sync.Mutex
	subs    []model.PushSubscription
	removed []string
}

func (f *fakeSubs) UserSubscriptions(ctx context.Context, userID int64) ([]model.PushSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PushSubscription
	for _, s := range f.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubs) RemoveSubscription(ctx context.Context, endpoint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, endpoint)
	return nil
}

func (f *fakeSubs) Removed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

type fakeMailer struct {
	sent chan Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg Message) error {
	f.sent <- msg
	return f.err
}

func okResponse(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, 1, nil, nil, nil, nil)

	assert.True(t, wp.Dispatch(Message{To: "a@example.edu"}))
	// Queue of one is full and nobody is consuming.
	assert.False(t, wp.Dispatch(Message{To: "b@example.edu"}))

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, "a@example.edu", job.To)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	subs := &fakeSubs{subs: []model.PushSubscription{
		{Endpoint: "https://example.com/push", UserID: 42, P256DH: "test_p256dh", Auth: "test_auth"},
		{Endpoint: "https://example.com/other", UserID: 43, P256DH: "x", Auth: "y"},
	}}
	mailer := &fakeMailer{sent: make(chan Message, 4)}
	wp := NewWorkerPool(1, 4, subs, mailer, &webpush.Options{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("sends email and push for the user", func(t *testing.T) {
		pushed := make(chan string, 4)
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				assert.Equal(t, "Room A-101 allocated", string(payload))
				pushed <- sub.Endpoint
				return okResponse(http.StatusCreated), nil
			},
		}
		wp.Start(ctx)

		require.True(t, wp.Dispatch(Message{To: "asha@example.edu", Subject: "Allocation", UserID: 42, Push: "Room A-101 allocated"}))

		select {
		case msg := <-mailer.sent:
			assert.Equal(t, "asha@example.edu", msg.To)
		case <-time.After(time.Second):
			t.Fatal("email not sent")
		}
		select {
		case endpoint := <-pushed:
			assert.Equal(t, "https://example.com/push", endpoint)
		case <-time.After(time.Second):
			t.Fatal("push not sent")
		}
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		done := make(chan struct{})
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				close(done)
				return okResponse(http.StatusGone), nil
			},
		}

		require.True(t, wp.Dispatch(Message{UserID: 42, Push: "ping"}))
		<-done

		assert.Eventually(t, func() bool {
			removed := subs.Removed()
			return len(removed) == 1 && removed[0] == "https://example.com/push"
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("mail failure does not stop push", func(t *testing.T) {
		mailer.err = errors.New("relay down")
		pushed := make(chan struct{}, 1)
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				pushed <- struct{}{}
				return okResponse(http.StatusCreated), nil
			},
		}

		require.True(t, wp.Dispatch(Message{To: "asha@example.edu", UserID: 43, Push: "ping"}))
		<-mailer.sent
		select {
		case <-pushed:
		case <-time.After(time.Second):
			t.Fatal("push not sent after mail failure")
		}
	})
}

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{Host: "smtp.example.edu", Port: 587, Username: "bot", Password: "pw", FromName: "Hostel Office", FromAddress: "office@example.edu"})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotBody []byte
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotBody = addr, from, to, msg
		return nil
	}

	err := m.Send(context.Background(), Message{
		To:          "asha@example.edu",
		Subject:     "Room allocated",
		HTML:        "<p>Welcome</p>",
		Attachments: []Attachment{{Name: "letter.html", ContentType: "text/html", Data: []byte("<h1>Letter</h1>")}},
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.edu:587", gotAddr)
	assert.Equal(t, "office@example.edu", gotFrom)
	assert.Equal(t, []string{"asha@example.edu"}, gotTo)
	body := string(gotBody)
	assert.True(t, strings.HasPrefix(body, `From: "Hostel Office" <office@example.edu>`))
	assert.Contains(t, body, "Subject: Room allocated")
	assert.Contains(t, body, `attachment; filename=letter.html`)
}
