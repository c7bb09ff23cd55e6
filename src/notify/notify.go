package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kelseyhightower/envconfig"
	logger "github.com/sirupsen/logrus"
)

type Config struct {
	Backend    string        `envconfig:"NOTIFY_BACKEND" default:"log"`
	WebhookURL string        `envconfig:"NOTIFY_WEBHOOK_URL" default:""`
	Timeout    time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"5s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// Notifier delivers fire-and-forget trade event messages. Delivery
// failures never affect the trading pipeline.
type Notifier interface {
	Notify(ctx context.Context, title string, message string) error
}

// LogNotifier writes events to the application log only.
type LogNotifier struct {
	log *logger.Entry
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.WithField("component", "LogNotifier")}
}

func (n *LogNotifier) Notify(_ context.Context, title string, message string) error {
	n.log.WithField("title", title).Info(message)
	return nil
}

// WebhookNotifier posts events as JSON to a configured endpoint.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	log    *logger.Entry
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &WebhookNotifier{
		client: client,
		url:    url,
		log:    logger.WithField("component", "WebhookNotifier"),
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, title string, message string) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"title": title, "message": message}).
		Post(n.url)
	if err != nil {
		n.log.WithError(err).Warn("Webhook notification failed")
		return err
	}
	if resp.StatusCode()/100 != 2 {
		err := fmt.Errorf("webhook returned status %d", resp.StatusCode())
		n.log.WithError(err).Warn("Webhook notification rejected")
		return err
	}
	return nil
}

// NewNotifier selects a notification backend by name.
func NewNotifier(config Config) (Notifier, error) {
	switch config.Backend {
	case "", "log":
		return NewLogNotifier(), nil
	case "webhook":
		if config.WebhookURL == "" {
			return nil, fmt.Errorf("webhook notifier requires NOTIFY_WEBHOOK_URL")
		}
		return NewWebhookNotifier(config.WebhookURL, config.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown notifier backend %q", config.Backend)
	}
}
