package handler

import (
	"context"
	"net"
	"testing"
	"time"

	"eeg-workload-be/internal/pkg/logger"
	"eeg-workload-be/internal/service"
	"eeg-workload-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatchServer(t *testing.T, secret string) (string, service.IPublisherService) {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	app := fiber.New()
	NewWorkloadWatchHandler(pubSub, service.WorkloadTopic, secret, logger.NewNopLogger()).RegisterRoutes(app)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "ws://" + ln.Addr().String() + "/ws/watch", service.NewPublisherService(service.WorkloadTopic, pubSub)
}

func TestWatchStreamsOwnPredictionsOnly(t *testing.T) {
	url, pub := startWatchServer(t, "")

	conn, _, err := gws.DefaultDialer.Dial(url+"?user_id=alice", nil)
	require.NoError(t, err)
	defer conn.Close()

	received := make(chan map[string]interface{}, 64)
	go func() {
		defer close(received)
		for {
			var got map[string]interface{}
			if err := conn.ReadJSON(&got); err != nil {
				return
			}
			received <- got
		}
	}()

	sid := uuid.New()
	publish := func(user string, w float64) {
		require.NoError(t, pub.PublishWorkload(context.Background(), events.WorkloadPredicted{
			UserID: user, SessionID: sid, Workload: w, Confidence: 1, OccurredAt: time.Now().UTC(),
		}))
	}

	// The subscription starts after the upgrade completes, so publish until
	// the first event arrives.
	require.Eventually(t, func() bool {
		publish("alice", 0.3)
		select {
		case got := <-received:
			return got["user_id"] == "alice"
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	publish("bob", 0.9)
	publish("alice", 0.7)

	timeout := time.After(5 * time.Second)
	for {
		select {
		case got, ok := <-received:
			require.True(t, ok, "connection closed early")
			require.Equal(t, "alice", got["user_id"])
			if got["workload"] == 0.7 {
				return
			}
		case <-timeout:
			t.Fatal("no event for alice")
		}
	}
}

func TestWatchRequiresIdentity(t *testing.T) {
	url, _ := startWatchServer(t, "secret")

	_, resp, err := gws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "alice"})
	signed, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)

	conn, _, err := gws.DefaultDialer.Dial(url+"?token="+signed, nil)
	require.NoError(t, err)
	conn.Close()

	open, _ := startWatchServer(t, "")
	_, resp, err = gws.DefaultDialer.Dial(open, nil)
	require.Error(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
