// Command relay streams synthetic EEG blocks to the ingestion gateway the way
// an edge device would: authenticate, then send raw_sample frames at the
// configured cadence, buffering frames while disconnected.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

type relayConfig struct {
	Cloud struct {
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"api_key"`
		UserID   string `yaml:"user_id"`
	} `yaml:"cloud"`
	Compression string `yaml:"compression"`
	Buffer      struct {
		Size int `yaml:"size"`
	} `yaml:"buffer"`
	Signal struct {
		SamplingRate float64 `yaml:"sampling_rate"`
		Channels     int     `yaml:"channels"`
		BlockSeconds float64 `yaml:"block_seconds"`
	} `yaml:"signal"`
}

func defaultConfig() relayConfig {
	var cfg relayConfig
	cfg.Cloud.Endpoint = "ws://localhost:8765/ws"
	cfg.Cloud.UserID = "default_user"
	cfg.Compression = "msgpack"
	cfg.Buffer.Size = 1000
	cfg.Signal.SamplingRate = 250
	cfg.Signal.Channels = 7
	cfg.Signal.BlockSeconds = 4
	return cfg
}

func main() {
	cfg := defaultConfig()

	configPath := pflag.StringP("config", "c", "", "YAML relay config (cloud, compression, buffer, signal)")
	endpoint := pflag.String("url", "", "gateway websocket URL")
	secret := pflag.String("secret", "", "producer secret")
	userID := pflag.StringP("user", "u", "", "user id to authenticate as")
	encoding := pflag.StringP("encoding", "e", "", "frame encoding: msgpack, cbor or json")
	blocks := pflag.IntP("blocks", "n", 0, "number of blocks to send, 0 streams until interrupted")
	interval := pflag.Duration("interval", 0, "delay between blocks, defaults to the block duration")
	load := pflag.Float64("load", 0.5, "synthetic workload level in [0,1]")
	seed := pflag.Int64("seed", time.Now().UnixNano(), "noise seed")
	pflag.Parse()

	if *configPath != "" {
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			log.Fatalf("read config: %v", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Fatalf("parse config %s: %v", *configPath, err)
		}
	}
	if *endpoint != "" {
		cfg.Cloud.Endpoint = *endpoint
	}
	if *secret != "" {
		cfg.Cloud.APIKey = *secret
	}
	if *userID != "" {
		cfg.Cloud.UserID = *userID
	}
	if *encoding != "" {
		cfg.Compression = *encoding
	}

	enc, err := newEncoder(cfg.Compression)
	if err != nil {
		log.Fatal(err)
	}
	gen := newGenerator(cfg.Signal.SamplingRate, cfg.Signal.Channels, *seed)
	blockLen := int(cfg.Signal.BlockSeconds * cfg.Signal.SamplingRate)
	period := *interval
	if period <= 0 {
		period = time.Duration(cfg.Signal.BlockSeconds * float64(time.Second))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &relay{
		endpoint: cfg.Cloud.Endpoint,
		secret:   cfg.Cloud.APIKey,
		userID:   cfg.Cloud.UserID,
		encode:   enc,
		backlog:  newBacklog(cfg.Buffer.Size),
	}
	log.Printf("Relay streaming %d-channel blocks of %d samples to %s as %q (%s)",
		cfg.Signal.Channels, blockLen, r.endpoint, r.userID, cfg.Compression)

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for sent := 0; *blocks == 0 || sent < *blocks; sent++ {
		frame := map[string]interface{}{
			"type":      "raw_sample",
			"timestamp": float64(time.Now().UnixNano()) / 1e9,
			"data":      map[string]interface{}{"channels": gen.block(blockLen, *load)},
		}
		if err := r.send(ctx, frame); err != nil {
			log.Printf("send failed, %d frames buffered: %v", r.backlog.len(), err)
		}
		select {
		case <-ctx.Done():
			r.close()
			return
		case <-ticker.C:
		}
	}
	r.close()
}

type encoder func(v interface{}) (int, []byte, error)

func newEncoder(name string) (encoder, error) {
	switch name {
	case "msgpack":
		return func(v interface{}) (int, []byte, error) {
			b, err := msgpack.Marshal(v)
			return websocket.BinaryMessage, b, err
		}, nil
	case "cbor":
		return func(v interface{}) (int, []byte, error) {
			b, err := cbor.Marshal(v)
			return websocket.BinaryMessage, b, err
		}, nil
	case "json":
		return func(v interface{}) (int, []byte, error) {
			b, err := json.Marshal(v)
			return websocket.TextMessage, b, err
		}, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
}

type relay struct {
	endpoint string
	secret   string
	userID   string
	encode   encoder
	backlog  *backlog
	conn     *websocket.Conn
}

func (r *relay) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, r.endpoint, nil)
	if err != nil {
		return err
	}
	auth := map[string]string{"secret": r.secret, "user_id": r.userID}
	if err := conn.WriteJSON(auth); err != nil {
		conn.Close()
		return err
	}

	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var reply map[string]interface{}
	if err := conn.ReadJSON(&reply); err != nil {
		conn.Close()
		return fmt.Errorf("authenticate: %w", err)
	}
	if reply["status"] != "authenticated" {
		conn.Close()
		return fmt.Errorf("authenticate: unexpected reply %v", reply)
	}
	_ = conn.SetReadDeadline(time.Time{})
	log.Printf("Authenticated as %v", reply["user_id"])

	r.conn = conn
	go r.drainReplies(conn)
	return nil
}

// drainReplies logs in-band errors; it also keeps pong handling alive.
func (r *relay) drainReplies(conn *websocket.Conn) {
	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				log.Printf("Gateway closed connection: %d %s", ce.Code, ce.Text)
			}
			return
		}
		if e, ok := msg["error"]; ok {
			log.Printf("Gateway error: %v", e)
		}
	}
}

func (r *relay) send(ctx context.Context, frame map[string]interface{}) error {
	mt, payload, err := r.encode(frame)
	if err != nil {
		return err
	}
	r.backlog.push(outbound{mt, payload})

	if r.conn == nil {
		if err := r.connect(ctx); err != nil {
			return err
		}
	}
	for r.backlog.len() > 0 {
		msg := r.backlog.peek()
		if err := r.conn.WriteMessage(msg.messageType, msg.payload); err != nil {
			r.conn.Close()
			r.conn = nil
			return err
		}
		r.backlog.pop()
	}
	return nil
}

func (r *relay) close() {
	if r.conn == nil {
		return
	}
	_ = r.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "relay stopped"),
		time.Now().Add(time.Second))
	r.conn.Close()
}
