package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/Joni1544/my-saas-demo-sub001/config"
)

// AdminNotification is a message for a tenant's administrators
type AdminNotification struct {
	Type     string    `json:"type"`
	Message  string    `json:"message"`
	TenantID uuid.UUID `json:"tenant_id"`
}

// Notifier delivers admin notifications. Delivery (email/push) happens
// outside this service; implementations only hand the message off.
type Notifier interface {
	NotifyAdmin(ctx context.Context, n AdminNotification) error
}

// LogNotifier writes notifications to the log. Used when no Service Bus
// connection is configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// NotifyAdmin logs the notification
func (n *LogNotifier) NotifyAdmin(_ context.Context, notification AdminNotification) error {
	log.Info().
		Str("type", notification.Type).
		Str("tenant_id", notification.TenantID.String()).
		Str("message", notification.Message).
		Msg("Admin notification")
	return nil
}

// ServiceBusNotifier publishes notifications to an Azure Service Bus queue
// consumed by the delivery workers
type ServiceBusNotifier struct {
	client    *azservicebus.Client
	sender    *azservicebus.Sender
	queueName string
}

// NewServiceBusNotifier creates a Service Bus backed notifier
func NewServiceBusNotifier(cfg config.ServiceBusConfig) (*ServiceBusNotifier, error) {
	if cfg.ConnectionString == "" {
		return nil, errors.New("service bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	sender, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}

	return &ServiceBusNotifier{
		client:    client,
		sender:    sender,
		queueName: cfg.QueueName,
	}, nil
}

// NotifyAdmin sends the notification to the queue
func (n *ServiceBusNotifier) NotifyAdmin(ctx context.Context, notification AdminNotification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return errors.Wrap(err, "failed to marshal notification")
	}

	msg := &azservicebus.Message{
		Body: data,
		ApplicationProperties: map[string]interface{}{
			"type": notification.Type,
			"time": time.Now().UTC().Format(time.RFC3339),
		},
	}

	if err := n.sender.SendMessage(ctx, msg, nil); err != nil {
		return errors.Wrap(err, "failed to send notification message")
	}
	return nil
}

// Close closes the Service Bus client
func (n *ServiceBusNotifier) Close() error {
	if n.sender != nil {
		if err := n.sender.Close(context.Background()); err != nil {
			return err
		}
	}
	if n.client != nil {
		return n.client.Close(context.Background())
	}
	return nil
}
