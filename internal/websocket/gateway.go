package websocket

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"eeg-workload-be/internal/buffer"
	"eeg-workload-be/internal/entity"
	"eeg-workload-be/internal/mapper"
	"eeg-workload-be/internal/metrics"
	"eeg-workload-be/internal/pkg/logger"
	"eeg-workload-be/internal/service"
	"eeg-workload-be/pkg/classifier"
	"eeg-workload-be/pkg/eeg"
	"eeg-workload-be/pkg/events"

	fws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	DefaultAuthTimeout = 10 * time.Second
	DefaultStreamName  = "edge_relay"
	maxUserIDLength    = 100
	publishTimeout     = 2 * time.Second
)

var (
	errAuthFailed  = errors.New("authentication failed")
	errAuthTimeout = errors.New("authentication timeout")
)

type GatewayConfig struct {
	// Secret is the shared producer secret. Empty disables the check.
	Secret          string
	AuthTimeout     time.Duration
	PersistRaw      bool
	PersistFeatures bool
	StreamName      string
}

// RecordSink receives rows for batched persistence.
type RecordSink interface {
	EnqueuePrediction(p *entity.Prediction)
	EnqueueFeatureVector(fv *entity.FeatureVector)
	EnqueueStreamSample(rs *entity.StreamSample)
}

// Gateway runs the per-connection ingestion state machine.
type Gateway struct {
	hub         *Hub
	sessions    service.ISessionService
	buffers     *buffer.Manager
	classifiers *classifier.Registry
	sink        RecordSink
	publisher   service.IPublisherService
	metrics     *metrics.Metrics
	logger      logger.ILogger
	cfg         GatewayConfig

	// serving counts Serve calls in flight. closing stops new ones from
	// joining once Shutdown has started waiting.
	servingMu sync.Mutex
	closing   bool
	serving   sync.WaitGroup

	now func() time.Time
}

func NewGateway(
	hub *Hub,
	sessions service.ISessionService,
	buffers *buffer.Manager,
	classifiers *classifier.Registry,
	sink RecordSink,
	publisher service.IPublisherService,
	m *metrics.Metrics,
	log logger.ILogger,
	cfg GatewayConfig,
) *Gateway {
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = DefaultAuthTimeout
	}
	if cfg.StreamName == "" {
		cfg.StreamName = DefaultStreamName
	}
	return &Gateway{
		hub:         hub,
		sessions:    sessions,
		buffers:     buffers,
		classifiers: classifiers,
		sink:        sink,
		publisher:   publisher,
		metrics:     m,
		logger:      log,
		cfg:         cfg,
		now:         time.Now,
	}
}

func (g *Gateway) Hub() *Hub { return g.hub }

// Serve owns conn until it closes. Closing a connection never ends the
// producer's session.
func (g *Gateway) Serve(ctx context.Context, conn Conn, remoteAddr string) {
	client := newClient(g.hub, conn, remoteAddr, g.now().UTC())

	if !g.track() {
		g.metrics.ConnectionRejected("shutdown")
		client.closeWith(CloseTryAgainLater, "server shutting down")
		return
	}
	defer g.serving.Done()

	if !g.hub.Register(client) {
		g.metrics.ConnectionRejected("capacity")
		client.closeWith(CloseTryAgainLater, "server at capacity")
		return
	}
	defer g.hub.Unregister(client)

	g.metrics.ConnectionOpened()
	defer g.metrics.ConnectionClosed()

	client.setState(stateAuthenticating)
	userID, err := g.authenticate(client)
	if err != nil {
		code, reason := CloseAuthFailed, "auth_failed"
		if errors.Is(err, errAuthTimeout) {
			code, reason = CloseAuthTimeout, "auth_timeout"
		}
		g.logger.Warn("Gateway", "Authentication rejected", map[string]interface{}{
			"remote_addr": remoteAddr,
			"error":       err.Error(),
		})
		g.metrics.ConnectionRejected(reason)
		client.closeWith(code, err.Error())
		return
	}

	sessionID, err := g.sessions.ResolveSession(ctx, userID, map[string]interface{}{
		"remote_addr": remoteAddr,
		"source":      DefaultStreamName,
	})
	if err != nil {
		g.logger.Error("Gateway", "Failed to resolve session", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		g.metrics.ConnectionRejected("session")
		client.closeWith(CloseInternalError, "session unavailable")
		return
	}

	client.activate(userID, sessionID)
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(fws.TextMessage, mustJSON(map[string]interface{}{
		"status":  "authenticated",
		"user_id": userID,
	})); err != nil {
		client.closeWith(CloseInternalError, "write failed")
		return
	}
	g.logger.Info("Gateway", "Client authenticated", map[string]interface{}{
		"user_id":     userID,
		"session_id":  sessionID.String(),
		"remote_addr": remoteAddr,
	})

	go client.writePump()
	err = client.readLoop(func(mt int, data []byte) {
		g.handleMessage(ctx, client, mt, data)
	})
	client.setState(stateClosed)
	if fws.IsUnexpectedCloseError(err, fws.CloseGoingAway, fws.CloseNormalClosure, fws.CloseNoStatusReceived) {
		g.logger.Warn("Gateway", "Connection closed unexpectedly", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
	g.logger.Info("Gateway", "Client disconnected", map[string]interface{}{
		"user_id":  userID,
		"messages": client.messages.Load(),
	})
}

func (g *Gateway) authenticate(c *Client) (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(g.cfg.AuthTimeout))
	mt, data, err := c.conn.ReadMessage()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", errAuthTimeout
		}
		return "", fmt.Errorf("%w: %v", errAuthFailed, err)
	}
	_ = c.conn.SetReadDeadline(time.Time{})

	req, err := decodeAuth(mt, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errAuthFailed, err)
	}
	if g.cfg.Secret != "" && subtle.ConstantTimeCompare([]byte(req.Secret), []byte(g.cfg.Secret)) != 1 {
		return "", fmt.Errorf("%w: invalid secret", errAuthFailed)
	}
	if req.UserID == "" {
		return "", fmt.Errorf("%w: user_id is required", errAuthFailed)
	}
	if len(req.UserID) > maxUserIDLength {
		return "", fmt.Errorf("%w: user_id too long", errAuthFailed)
	}
	return req.UserID, nil
}

func (g *Gateway) handleMessage(ctx context.Context, c *Client, mt int, data []byte) {
	frame, err := DecodeFrame(mt, data, g.now().UTC())
	if err == nil {
		g.metrics.MessageReceived(string(frame.Kind()))
		err = g.dispatch(ctx, c, frame)
	}
	if err != nil {
		c.errors.Add(1)
		kind := "handler"
		switch {
		case errors.Is(err, ErrMalformedFrame):
			kind = "malformed"
		case errors.Is(err, ErrUnknownFrame):
			kind = "unknown_type"
		}
		g.metrics.ProtocolError(kind)
		userID, _ := c.identity()
		g.logger.Warn("Gateway", "Frame rejected", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		c.reply(map[string]interface{}{"error": err.Error()})
	}
}

func (g *Gateway) dispatch(ctx context.Context, c *Client, frame Frame) error {
	switch f := frame.(type) {
	case *RawSampleFrame:
		return g.handleRaw(ctx, c, f)
	case *FeaturesFrame:
		return g.handleFeatures(ctx, c, f)
	case *HeartbeatFrame:
		c.reply(map[string]interface{}{"type": "heartbeat_ack"})
		return nil
	case *UnknownFrame:
		return fmt.Errorf("%w: %s", ErrUnknownFrame, f.Type)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownFrame, frame)
	}
}

// currentSession returns the session frames from c belong to. When the bound
// session was ended the producer is moved to the user's next one.
func (g *Gateway) currentSession(ctx context.Context, c *Client) (string, uuid.UUID, error) {
	userID, sessionID := c.identity()
	if g.sessions.IsCurrent(userID, sessionID) {
		return userID, sessionID, nil
	}
	next, err := g.sessions.ResolveSession(ctx, userID, map[string]interface{}{
		"remote_addr": c.remoteAddr,
		"source":      DefaultStreamName,
	})
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("resolve session: %w", err)
	}
	c.activate(userID, next)
	g.logger.Info("Gateway", "Producer moved to new session", map[string]interface{}{
		"user_id":          userID,
		"ended_session_id": sessionID.String(),
		"session_id":       next.String(),
	})
	return userID, next, nil
}

func (g *Gateway) handleRaw(ctx context.Context, c *Client, f *RawSampleFrame) error {
	userID, sessionID, err := g.currentSession(ctx, c)
	if err != nil {
		return err
	}

	if !g.buffers.Append(buffer.NewRawRecord(f.Timestamp, sessionID, userID, f.Channels, map[string]interface{}{
		"source": DefaultStreamName,
	})) {
		// Ended between the check above and the append.
		return nil
	}
	g.sessions.RecordSamples(sessionID, int64(f.Samples()))
	if g.cfg.PersistRaw && g.sink != nil {
		g.sink.EnqueueStreamSample(mapper.StreamSampleFromRaw(f.Timestamp, sessionID, g.cfg.StreamName, f.Channels))
	}

	clf, err := g.classifiers.Get(classifier.DefaultName)
	if err != nil {
		return nil
	}
	res, err := clf.Predict(ctx, f.Channels)
	if err != nil {
		if errors.Is(err, eeg.ErrTooFewChannels) || errors.Is(err, eeg.ErrTooFewSamples) || errors.Is(err, eeg.ErrRaggedMatrix) {
			// Kept as raw data, just not classified.
			g.logger.Debug("Gateway", "Sample block not classifiable", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
			return nil
		}
		return err
	}

	values := make(map[string]float64, len(res.Features)+2)
	for k, v := range res.Features {
		values[k] = v
	}
	values["workload"] = res.Workload
	values["confidence"] = res.Confidence
	g.buffers.Append(buffer.NewPredictionRecord(f.Timestamp, sessionID, userID, values, map[string]interface{}{
		"classifier": clf.Name(),
		"version":    clf.Version(),
	}))
	g.metrics.PredictionObserved(res.Metadata.ProcessingTimeMs / 1000)

	if g.sink != nil {
		g.sink.EnqueuePrediction(mapper.PredictionFromResult(f.Timestamp, sessionID, userID, clf, res))
		if g.cfg.PersistFeatures {
			g.sink.EnqueueFeatureVector(mapper.FeatureVectorFromFeatures(f.Timestamp, sessionID, res.Features))
		}
	}

	if g.publisher != nil {
		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		err := g.publisher.PublishWorkload(pctx, events.WorkloadPredicted{
			UserID:     userID,
			SessionID:  sessionID,
			Classifier: clf.Name(),
			Workload:   res.Workload,
			Confidence: res.Confidence,
			Features:   res.Features,
			OccurredAt: f.Timestamp,
		})
		if err != nil {
			g.logger.Warn("Gateway", "Failed to publish workload event", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}
	return nil
}

func (g *Gateway) handleFeatures(ctx context.Context, c *Client, f *FeaturesFrame) error {
	userID, sessionID, err := g.currentSession(ctx, c)
	if err != nil {
		return err
	}

	md := map[string]interface{}{"source": DefaultStreamName}
	for k, v := range f.Extra {
		md[k] = v
	}
	if !g.buffers.Append(buffer.NewFeaturesRecord(f.Timestamp, sessionID, userID, f.Features, md)) {
		return nil
	}

	if g.cfg.PersistFeatures && g.sink != nil && len(f.Features) > 0 {
		g.sink.EnqueueFeatureVector(mapper.FeatureVectorFromFeatures(f.Timestamp, sessionID, f.Features))
	}
	return nil
}

func (g *Gateway) track() bool {
	g.servingMu.Lock()
	defer g.servingMu.Unlock()
	if g.closing {
		return false
	}
	g.serving.Add(1)
	return true
}

// Shutdown closes every producer connection and waits, bounded by ctx, for
// each connection loop to finish the frame it is handling. Rows those frames
// enqueue are in the sink when Shutdown returns nil.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.servingMu.Lock()
	g.closing = true
	g.servingMu.Unlock()

	g.hub.Close()

	done := make(chan struct{})
	go func() {
		g.serving.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("producer connections still open: %w", ctx.Err())
	}
}
