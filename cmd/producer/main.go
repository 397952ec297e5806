package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"adjust-consumer/internal/config"
	"adjust-consumer/internal/dlq"
	"adjust-consumer/internal/logger"
	"adjust-consumer/internal/models"
	"adjust-consumer/internal/producer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	app := &cli.App{
		Name:  "producer",
		Usage: "publish analytics messages to the forwarder topic",
		Commands: []*cli.Command{
			trackCommand(cfg),
			setPropertyCommand(cfg),
			setUserIDCommand(cfg),
			sampleCommand(cfg),
			duplicateCommand(cfg),
			malformedCommand(cfg),
			replayCommand(cfg),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal(err)
	}
}

func withProducer(cfg *config.Config, fn func(*producer.Producer) error) error {
	prod, err := producer.New(&cfg.Kafka)
	if err != nil {
		return err
	}
	defer prod.Close()
	return fn(prod)
}

func trackCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "track",
		Usage: "publish an event",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true, Usage: "event name"},
			&cli.StringSliceFlag{Name: "param", Usage: "callback parameter as key=value"},
		},
		Action: func(c *cli.Context) error {
			params, err := parseParams(c.StringSlice("param"))
			if err != nil {
				return err
			}
			return withProducer(cfg, func(prod *producer.Producer) error {
				id, err := prod.PublishEvent(c.String("name"), params)
				if err != nil {
					return err
				}
				fmt.Printf("✓ Event published: %s\n", id)
				return nil
			})
		},
	}
}

func setPropertyCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "set-property",
		Usage: "set or unset a user property",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "key", Required: true},
			&cli.StringFlag{Name: "value"},
			&cli.BoolFlag{Name: "unset"},
		},
		Action: func(c *cli.Context) error {
			value, err := optionalValue(c)
			if err != nil {
				return err
			}
			return withProducer(cfg, func(prod *producer.Producer) error {
				id, err := prod.PublishUserProperty(c.String("key"), value)
				if err != nil {
					return err
				}
				fmt.Printf("✓ User property update published: %s\n", id)
				return nil
			})
		},
	}
}

func setUserIDCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "set-user-id",
		Usage: "set or unset the user id",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "value"},
			&cli.BoolFlag{Name: "unset"},
		},
		Action: func(c *cli.Context) error {
			value, err := optionalValue(c)
			if err != nil {
				return err
			}
			return withProducer(cfg, func(prod *producer.Producer) error {
				id, err := prod.PublishUserID(value)
				if err != nil {
					return err
				}
				fmt.Printf("✓ User id update published: %s\n", id)
				return nil
			})
		},
	}
}

func sampleCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "sample",
		Usage: "publish a batch of sample events and property updates",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "count", Value: 10},
		},
		Action: func(c *cli.Context) error {
			return withProducer(cfg, func(prod *producer.Producer) error {
				plan := "premium"
				if _, err := prod.PublishUserProperty("subscription_plan", &plan); err != nil {
					return err
				}

				names := []string{"abc123", "purchase_completed", "onboarding_step_finished_after_long_delay"}
				for i := 0; i < c.Int("count"); i++ {
					name := names[i%len(names)]
					params := map[string]interface{}{
						"index":    i,
						"discount": 0.25,
						"promo":    i%2 == 0,
					}
					if _, err := prod.PublishEvent(name, params); err != nil {
						return err
					}
				}

				fmt.Printf("✓ Published %d sample events\n", c.Int("count"))
				return nil
			})
		},
	}
}

func duplicateCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "duplicate",
		Usage: "publish the same message several times to exercise deduplication",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Value: "abc123"},
			&cli.IntFlag{Name: "times", Value: 3},
		},
		Action: func(c *cli.Context) error {
			return withProducer(cfg, func(prod *producer.Producer) error {
				msg := producer.NewMessage(models.EventMessage, c.String("name"))
				for i := 1; i <= c.Int("times"); i++ {
					if err := prod.Publish(msg); err != nil {
						return err
					}
					fmt.Printf("  📤 Attempt %d: Sent message %s\n", i, msg.MessageID)
					time.Sleep(200 * time.Millisecond)
				}
				return nil
			})
		},
	}
}

func malformedCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "malformed",
		Usage: "publish malformed messages and check they reach the DLQ",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "wait", Value: 5 * time.Second},
		},
		Action: func(c *cli.Context) error {
			dlqClient, err := dlq.New(&cfg.Redis)
			if err != nil {
				return err
			}
			defer dlqClient.Close()

			ctx := context.Background()
			initial, err := dlqClient.GetCount(ctx)
			if err != nil {
				return err
			}

			cases := []struct {
				name string
				data string
			}{
				{"Invalid JSON Syntax", `{"messageId": "dlq-1", "kind": "event", "name": "abc123"`},
				{"Unknown Kind", `{"messageId": "dlq-2", "kind": "screen_view", "name": "home"}`},
				{"Nested Param", `{"messageId": "dlq-3", "kind": "event", "name": "abc123", "params": {"cart": {"items": 2}}}`},
			}

			err = withProducer(cfg, func(prod *producer.Producer) error {
				for _, tc := range cases {
					if err := prod.PublishRaw(tc.name, "dlq-test", []byte(tc.data)); err != nil {
						return err
					}
					fmt.Printf("  ❌ Sent: %s\n", tc.name)
				}
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n⏳ Waiting %s for the forwarder...\n", c.Duration("wait"))
			time.Sleep(c.Duration("wait"))

			final, err := dlqClient.GetCount(ctx)
			if err != nil {
				return err
			}

			if added := final - initial; added < int64(len(cases)) {
				return fmt.Errorf("expected %d new DLQ entries, got %d", len(cases), added)
			}
			fmt.Printf("✅ All %d malformed messages were captured in the DLQ\n", len(cases))
			return nil
		},
	}
}

func replayCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "replay-dlq",
		Usage: "republish dead-lettered messages onto the analytics topic",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 100},
			&cli.IntFlag{Name: "max-retries", Value: 3},
		},
		Action: func(c *cli.Context) error {
			dlqClient, err := dlq.New(&cfg.Redis)
			if err != nil {
				return err
			}
			defer dlqClient.Close()

			return withProducer(cfg, func(prod *producer.Producer) error {
				n, err := dlqClient.Replay(c.Context, prod, c.Int("limit"), c.Int("max-retries"))
				if err != nil {
					return err
				}
				fmt.Printf("✓ Replayed %d DLQ entries\n", n)
				return nil
			})
		},
	}
}

func optionalValue(c *cli.Context) (*string, error) {
	if c.Bool("unset") {
		if c.IsSet("value") {
			return nil, fmt.Errorf("--value and --unset are mutually exclusive")
		}
		return nil, nil
	}
	if !c.IsSet("value") {
		return nil, fmt.Errorf("either --value or --unset is required")
	}
	v := c.String("value")
	return &v, nil
}

// parseParams turns key=value pairs into scalars: booleans and numbers are
// recognized, everything else stays a string.
func parseParams(pairs []string) (map[string]interface{}, error) {
	params := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed param %q, want key=value", pair)
		}

		if raw == "true" || raw == "false" {
			params[key] = raw == "true"
		} else if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			params[key] = i
		} else if f, err := strconv.ParseFloat(raw, 64); err == nil {
			params[key] = f
		} else {
			params[key] = raw
		}
	}
	return params, nil
}
