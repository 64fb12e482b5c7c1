// Command tail prints workload events from the JetStream bus as JSON lines.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"eeg-workload-be/pkg/events"
	pktNats "eeg-workload-be/pkg/nats"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	_ = godotenv.Load()

	url := pflag.String("nats", os.Getenv("NATS_URL"), "NATS server URL")
	subject := pflag.StringP("subject", "s", pktNats.Subject(events.WorkloadPredictedType), "subject filter, e.g. events.>")
	durable := pflag.StringP("durable", "d", "", "durable consumer name, empty follows new events only")
	user := pflag.StringP("user", "u", "", "only print events for this user id")
	pflag.Parse()

	if *url == "" {
		log.Fatal("NATS URL is required (--nats or NATS_URL)")
	}

	sub, err := pktNats.NewSubscriber(*url)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := json.NewEncoder(os.Stdout)
	err = sub.Subscribe(ctx, *subject, *durable, func(_ context.Context, ev events.Event) error {
		payload := ev.Payload()
		if *user != "" && payload["user_id"] != *user {
			return nil
		}
		return out.Encode(map[string]interface{}{
			"type":      ev.EventType(),
			"timestamp": ev.Timestamp(),
			"data":      payload,
		})
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	<-ctx.Done()
}
